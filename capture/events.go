// Package capture implements the Event Consumer: it dispatches the tagged
// union of capture events read off the wire into the listener callbacks
// that drive interning, symbol resolution, and sample aggregation.
package capture

// EventKind identifies which variant of CaptureEvent is populated.
type EventKind int

const (
	EventUnset EventKind = iota
	EventSchedulingSlice
	EventInternedCallstack
	EventCallstackSample
	EventFunctionCall
	EventInternedString
	EventGpuJob
	EventThreadName
	EventAddressInfo
)

// SchedulingSlice records a thread's residency on a CPU core.
type SchedulingSlice struct {
	InTimestampNs  int64
	OutTimestampNs int64
	PID            int32
	TID            int32
	Core           int8
}

// InternedCallstack carries a (key, call stack) pair to be inserted into
// the interning pool before any CallstackSample references it by key.
type InternedCallstack struct {
	Key  uint64
	PCs  []uint64
	TID  uint32
}

// CallstackSample is a single stack sample, carrying either a pool key or
// the frames inline, never both.
type CallstackSample struct {
	TimestampNs int64
	TID         uint32

	HasKey       bool
	CallstackKey uint64

	PCs []uint64 // valid when !HasKey
}

// FunctionCall records an instrumented function's entry/exit timestamps.
type FunctionCall struct {
	TID               uint32
	BeginTimestampNs  int64
	EndTimestampNs    int64
	Depth             uint8
	AbsoluteAddress   uint64
	ReturnValue       uint64
}

// InternedString carries a (key, string) pair to be inserted into the
// interning pool before any event references it by key.
type InternedString struct {
	Key   uint64
	Value string
}

// GpuJob records one GPU job's four pipeline timestamps.
type GpuJob struct {
	TID                       uint32
	Depth                     uint32
	AmdgpuCsIoctlTimeNs       int64
	AmdgpuSchedRunJobTimeNs   int64
	GpuHardwareStartTimeNs    int64
	DmaFenceSignaledTimeNs    int64

	HasTimelineKey bool
	TimelineKey    uint64
	Timeline       string // valid when !HasTimelineKey
}

// ThreadName associates a human-readable name with a TID.
type ThreadName struct {
	TID  uint32
	Name string
}

// AddressInfo resolves one instruction address to a function/module pair,
// as reported by the remote agent's own unwinder (distinct from local
// symbol resolution).
type AddressInfo struct {
	AbsoluteAddress  uint64
	OffsetInFunction uint64

	HasFunctionNameKey bool
	FunctionNameKey    uint64
	FunctionName       string // valid when !HasFunctionNameKey

	HasMapNameKey bool
	MapNameKey    uint64
	MapName       string // valid when !HasMapNameKey
}

// Event is the tagged union read off the wire. Exactly one of the
// pointer fields matching Kind is populated.
type Event struct {
	Kind EventKind

	SchedulingSlice   *SchedulingSlice
	InternedCallstack *InternedCallstack
	CallstackSample   *CallstackSample
	FunctionCall      *FunctionCall
	InternedString    *InternedString
	GpuJob            *GpuJob
	ThreadName        *ThreadName
	AddressInfo       *AddressInfo
}

// TimerType distinguishes the three kinds of interval a Timer records.
type TimerType int

const (
	TimerCoreActivity TimerType = iota
	TimerGpuActivity
	TimerFunctionCall
)

// Timer is a generic timestamped interval, used for core residency, GPU
// pipeline stages, and instrumented function calls alike.
type Timer struct {
	Type            TimerType
	Start           int64
	End             int64
	PID             int32
	TID             uint32
	Processor       int16
	Depth           int8
	FunctionAddress uint64
	UserData        [2]uint64
}

// CallstackEvent is the resolved (timestamp, hash, tid) triple the sample
// aggregator consumes; it never carries frame data directly.
type CallstackEvent struct {
	TimestampNs int64
	Hash        uint64
	TID         uint32
}

// LinuxAddressInfo is the resolved form of AddressInfo after any interned
// strings have been substituted in.
type LinuxAddressInfo struct {
	AbsoluteAddress  uint64
	MapName          string
	FunctionName     string
	OffsetInFunction uint64
}

// Listener receives dispatched, fully-resolved events. Implementations
// typically fan these out to interning pools, the process index, and the
// sample aggregator.
type Listener interface {
	OnTimer(t Timer)
	OnCallstackEvent(ev CallstackEvent)
	OnThreadName(tid uint32, name string)
	OnAddressInfo(info LinuxAddressInfo)
	OnDoneProcessing()
}
