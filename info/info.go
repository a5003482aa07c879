package info

const (
	AppName = "orbitcore"
	Version = "0.0.1"

	DefaultConfigDir  = "./.orbitcore"
	DefaultListenEnv  = "ORBITCORE_LISTEN"
	DefaultRestAPIEnv = "ORBITCORE_RESTAPI_LISTEN"
)
