package config

import "github.com/orbitcore/profiler/wire"

// CaptureDefaults holds the options a new capture.run invocation starts
// from unless overridden on the command line.
type CaptureDefaults struct {
	SamplingRate    uint32
	UnwindingMethod wire.UnwindingMethod
	TraceGPU        bool
	ListenAddr      string
	RestAPIAddr     string
}

// DefaultCaptureDefaults mirrors the options a fresh install would ship
// with: 1000Hz sampling, frame-pointer unwinding, GPU tracing off.
func DefaultCaptureDefaults() CaptureDefaults {
	return CaptureDefaults{
		SamplingRate:    1000,
		UnwindingMethod: wire.UnwindingFramePointers,
		TraceGPU:        false,
		ListenAddr:      "tcp://127.0.0.1:4044",
		RestAPIAddr:     "127.0.0.1:4045",
	}
}
