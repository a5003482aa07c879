package capture

import (
	"log"

	"github.com/orbitcore/profiler/intern"
)

// swQueueLabel, hwQueueLabel, and hwExecutionLabel name the three pipeline
// stages synthesized out of one GpuJob event.
const (
	swQueueLabel     = "sw queue"
	hwQueueLabel     = "hw queue"
	hwExecutionLabel = "hw execution"
)

// Consumer dispatches a stream of Events into a Listener, resolving any
// interned call stacks/strings along the way. It owns no network state:
// callers push events from whatever transport they use (see the wire
// package for the xtcp-based one).
type Consumer struct {
	Listener Listener
	Pools    *intern.Pools
}

// NewConsumer returns a Consumer backed by listener and pools. pools may
// be shared with other consumers of the same session; listener may not be
// nil.
func NewConsumer(listener Listener, pools *intern.Pools) *Consumer {
	return &Consumer{Listener: listener, Pools: pools}
}

// Consume dispatches a single event, in the same order the fields of
// Event's tagged union are declared.
func (c *Consumer) Consume(ev Event) {
	switch ev.Kind {
	case EventSchedulingSlice:
		c.processSchedulingSlice(ev.SchedulingSlice)
	case EventInternedCallstack:
		c.processInternedCallstack(ev.InternedCallstack)
	case EventCallstackSample:
		c.processCallstackSample(ev.CallstackSample)
	case EventFunctionCall:
		c.processFunctionCall(ev.FunctionCall)
	case EventInternedString:
		c.processInternedString(ev.InternedString)
	case EventGpuJob:
		c.processGpuJob(ev.GpuJob)
	case EventThreadName:
		c.processThreadName(ev.ThreadName)
	case EventAddressInfo:
		c.processAddressInfo(ev.AddressInfo)
	case EventUnset:
		log.Printf("ERROR: capture: event with unset kind read from capture stream")
	default:
		log.Printf("ERROR: capture: unknown event kind %d read from capture stream", ev.Kind)
	}
}

// ConsumeAll drains events until the channel closes, then notifies the
// listener that processing is done.
func (c *Consumer) ConsumeAll(events <-chan Event) {
	for ev := range events {
		c.Consume(ev)
	}
	c.Listener.OnDoneProcessing()
}

func (c *Consumer) processSchedulingSlice(s *SchedulingSlice) {
	c.Listener.OnTimer(Timer{
		Type:      TimerCoreActivity,
		Start:     s.InTimestampNs,
		End:       s.OutTimestampNs,
		PID:       s.PID,
		TID:       uint32(s.TID),
		Processor: int16(s.Core),
	})
}

func (c *Consumer) processInternedCallstack(ic *InternedCallstack) {
	c.Pools.InternCallstack(ic.Key, intern.NewCallStack(ic.TID, ic.PCs))
}

func (c *Consumer) processCallstackSample(s *CallstackSample) {
	var hash uint64
	if s.HasKey {
		cs, ok := c.Pools.Stack(s.CallstackKey)
		if !ok {
			log.Printf("ERROR: capture: callstack sample references unknown key %d", s.CallstackKey)
			return
		}
		hash = cs.Hash()
	} else {
		hash = c.Pools.InternCallstackValue(intern.NewCallStack(s.TID, s.PCs))
	}
	c.Listener.OnCallstackEvent(CallstackEvent{
		TimestampNs: s.TimestampNs,
		Hash:        hash,
		TID:         s.TID,
	})
}

func (c *Consumer) processFunctionCall(fc *FunctionCall) {
	c.Listener.OnTimer(Timer{
		Type:            TimerFunctionCall,
		TID:             fc.TID,
		Start:           fc.BeginTimestampNs,
		End:             fc.EndTimestampNs,
		Depth:           int8(fc.Depth),
		FunctionAddress: fc.AbsoluteAddress,
		UserData:        [2]uint64{fc.ReturnValue, 0},
	})
}

func (c *Consumer) processInternedString(is *InternedString) {
	c.Pools.InternString(is.Key, is.Value)
}

func (c *Consumer) resolveString(hasKey bool, key uint64, inline string) string {
	if !hasKey {
		return inline
	}
	s, ok := c.Pools.String(key)
	if !ok {
		log.Printf("ERROR: capture: event references unknown interned string key %d", key)
		return ""
	}
	return s
}

func (c *Consumer) internLabel(label string) uint64 {
	return c.Pools.InternStringValue(label)
}

func (c *Consumer) processGpuJob(j *GpuJob) {
	timeline := c.resolveString(j.HasTimelineKey, j.TimelineKey, j.Timeline)
	timelineHash := c.internLabel(timeline)

	c.Listener.OnTimer(Timer{
		Type:     TimerGpuActivity,
		TID:      j.TID,
		Start:    j.AmdgpuCsIoctlTimeNs,
		End:      j.AmdgpuSchedRunJobTimeNs,
		Depth:    int8(j.Depth),
		UserData: [2]uint64{c.internLabel(swQueueLabel), timelineHash},
	})
	c.Listener.OnTimer(Timer{
		Type:     TimerGpuActivity,
		TID:      j.TID,
		Start:    j.AmdgpuSchedRunJobTimeNs,
		End:      j.GpuHardwareStartTimeNs,
		Depth:    int8(j.Depth),
		UserData: [2]uint64{c.internLabel(hwQueueLabel), timelineHash},
	})
	c.Listener.OnTimer(Timer{
		Type:     TimerGpuActivity,
		TID:      j.TID,
		Start:    j.GpuHardwareStartTimeNs,
		End:      j.DmaFenceSignaledTimeNs,
		Depth:    int8(j.Depth),
		UserData: [2]uint64{c.internLabel(hwExecutionLabel), timelineHash},
	})
}

func (c *Consumer) processThreadName(tn *ThreadName) {
	c.Listener.OnThreadName(tn.TID, tn.Name)
}

func (c *Consumer) processAddressInfo(ai *AddressInfo) {
	funcName := c.resolveString(ai.HasFunctionNameKey, ai.FunctionNameKey, ai.FunctionName)
	mapName := c.resolveString(ai.HasMapNameKey, ai.MapNameKey, ai.MapName)

	c.Listener.OnAddressInfo(LinuxAddressInfo{
		AbsoluteAddress:  ai.AbsoluteAddress,
		MapName:          mapName,
		FunctionName:     funcName,
		OffsetInFunction: ai.OffsetInFunction,
	})
}
