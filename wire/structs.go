// Package wire is the capture streaming transport: an xtcp.Proto that
// frames gob-encoded packets behind a 4-byte length prefix, plus the
// packet types exchanged between a capture client and the remote tracing
// agent.
//
// Protocol Specification
// Step1: Client -> Agent
//   [CaptureRequestPacket]
// Step2: Agent -> Client (repeated until the stream ends)
//   [CaptureResponsePacket]*n
// Either side may send [PingPacket] to keep the connection alive, and
// [ShutdownPacket] to request a clean close.
package wire

// UnwindingMethod selects how the remote agent unwinds call stacks.
type UnwindingMethod uint8

const (
	UnwindingUndefined UnwindingMethod = iota
	UnwindingFramePointers
	UnwindingDwarf
)

// InstrumentedFunction identifies one function the agent should report
// FunctionCall events for.
type InstrumentedFunction struct {
	FilePath        string
	FileOffset      uint64
	AbsoluteAddress uint64
}

// CaptureOptions configures a capture session, mirroring the options a
// CaptureClient sends when it starts one.
type CaptureOptions struct {
	PID                    int32
	TraceContextSwitches   bool
	TraceGpuDriver         bool
	SamplingRate           uint16
	UnwindingMethod        UnwindingMethod
	InstrumentedFunctions  []InstrumentedFunction
}

// CaptureEventMsg is the wire form of capture.Event: a tagged union with
// exactly one populated payload, matching Kind.
type CaptureEventMsg struct {
	Kind int

	SchedulingSlice   *SchedulingSliceMsg   `json:",omitempty"`
	InternedCallstack *InternedCallstackMsg `json:",omitempty"`
	CallstackSample   *CallstackSampleMsg   `json:",omitempty"`
	FunctionCall      *FunctionCallMsg      `json:",omitempty"`
	InternedString    *InternedStringMsg    `json:",omitempty"`
	GpuJob            *GpuJobMsg            `json:",omitempty"`
	ThreadName        *ThreadNameMsg        `json:",omitempty"`
	AddressInfo       *AddressInfoMsg       `json:",omitempty"`
}

type SchedulingSliceMsg struct {
	InTimestampNs, OutTimestampNs int64
	PID, TID                      int32
	Core                          int8
}

type InternedCallstackMsg struct {
	Key uint64
	PCs []uint64
	TID uint32
}

// CallstackSampleMsg is the one event type this package also hand-codes a
// msgp Marshaler/Unmarshaler for (see msgp.go), since it's the
// highest-volume event in a capture and the one most worth a compact
// encoding independent of the gob-framed transport.
type CallstackSampleMsg struct {
	TimestampNs  int64
	TID          uint32
	HasKey       bool
	CallstackKey uint64
	PCs          []uint64
}

type FunctionCallMsg struct {
	TID                              uint32
	BeginTimestampNs, EndTimestampNs int64
	Depth                            uint8
	AbsoluteAddress                  uint64
	ReturnValue                      uint64
}

type InternedStringMsg struct {
	Key   uint64
	Value string
}

type GpuJobMsg struct {
	TID, Depth                                                                                uint32
	AmdgpuCsIoctlTimeNs, AmdgpuSchedRunJobTimeNs, GpuHardwareStartTimeNs, DmaFenceSignaledTimeNs int64
	HasTimelineKey                                                                              bool
	TimelineKey                                                                                 uint64
	Timeline                                                                                    string
}

type ThreadNameMsg struct {
	TID  uint32
	Name string
}

type AddressInfoMsg struct {
	AbsoluteAddress    uint64
	OffsetInFunction   uint64
	HasFunctionNameKey bool
	FunctionNameKey    uint64
	FunctionName       string
	HasMapNameKey      bool
	MapNameKey         uint64
	MapName            string
}

// CaptureRequestPacket asks the agent to start capturing pid with the
// given options.
type CaptureRequestPacket struct {
	Options CaptureOptions
}

// CaptureResponsePacket carries a batch of events from the agent back to
// the client.
type CaptureResponsePacket struct {
	Events []CaptureEventMsg
}

// PingPacket and ShutdownPacket are the connection-management packets,
// carrying no payload.
type PingPacket struct{}
type ShutdownPacket struct{}

func (p CaptureRequestPacket) String() string  { return "<CaptureRequestPacket>" }
func (p CaptureResponsePacket) String() string { return "<CaptureResponsePacket>" }
func (p PingPacket) String() string            { return "<PingPacket>" }
func (p ShutdownPacket) String() string        { return "<ShutdownPacket>" }
