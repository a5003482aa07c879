package wire

import "github.com/orbitcore/profiler/capture"

// ToCaptureEvent converts one wire-form CaptureEventMsg into the
// capture.Event the Event Consumer dispatches on. An EventUnset kind (or
// an unrecognized one) converts to a bare capture.Event{Kind: EventUnset},
// which Consume logs and skips.
func (m CaptureEventMsg) ToCaptureEvent() capture.Event {
	switch capture.EventKind(m.Kind) {
	case capture.EventSchedulingSlice:
		s := m.SchedulingSlice
		return capture.Event{Kind: capture.EventSchedulingSlice, SchedulingSlice: &capture.SchedulingSlice{
			InTimestampNs: s.InTimestampNs, OutTimestampNs: s.OutTimestampNs,
			PID: s.PID, TID: s.TID, Core: s.Core,
		}}
	case capture.EventInternedCallstack:
		c := m.InternedCallstack
		return capture.Event{Kind: capture.EventInternedCallstack, InternedCallstack: &capture.InternedCallstack{
			Key: c.Key, PCs: c.PCs, TID: c.TID,
		}}
	case capture.EventCallstackSample:
		s := m.CallstackSample
		return capture.Event{Kind: capture.EventCallstackSample, CallstackSample: &capture.CallstackSample{
			TimestampNs: s.TimestampNs, TID: s.TID,
			HasKey: s.HasKey, CallstackKey: s.CallstackKey, PCs: s.PCs,
		}}
	case capture.EventFunctionCall:
		f := m.FunctionCall
		return capture.Event{Kind: capture.EventFunctionCall, FunctionCall: &capture.FunctionCall{
			TID: f.TID, BeginTimestampNs: f.BeginTimestampNs, EndTimestampNs: f.EndTimestampNs,
			Depth: f.Depth, AbsoluteAddress: f.AbsoluteAddress, ReturnValue: f.ReturnValue,
		}}
	case capture.EventInternedString:
		s := m.InternedString
		return capture.Event{Kind: capture.EventInternedString, InternedString: &capture.InternedString{
			Key: s.Key, Value: s.Value,
		}}
	case capture.EventGpuJob:
		j := m.GpuJob
		return capture.Event{Kind: capture.EventGpuJob, GpuJob: &capture.GpuJob{
			TID: j.TID, Depth: j.Depth,
			AmdgpuCsIoctlTimeNs: j.AmdgpuCsIoctlTimeNs, AmdgpuSchedRunJobTimeNs: j.AmdgpuSchedRunJobTimeNs,
			GpuHardwareStartTimeNs: j.GpuHardwareStartTimeNs, DmaFenceSignaledTimeNs: j.DmaFenceSignaledTimeNs,
			HasTimelineKey: j.HasTimelineKey, TimelineKey: j.TimelineKey, Timeline: j.Timeline,
		}}
	case capture.EventThreadName:
		n := m.ThreadName
		return capture.Event{Kind: capture.EventThreadName, ThreadName: &capture.ThreadName{
			TID: n.TID, Name: n.Name,
		}}
	case capture.EventAddressInfo:
		i := m.AddressInfo
		return capture.Event{Kind: capture.EventAddressInfo, AddressInfo: &capture.AddressInfo{
			AbsoluteAddress: i.AbsoluteAddress, OffsetInFunction: i.OffsetInFunction,
			HasFunctionNameKey: i.HasFunctionNameKey, FunctionNameKey: i.FunctionNameKey, FunctionName: i.FunctionName,
			HasMapNameKey: i.HasMapNameKey, MapNameKey: i.MapNameKey, MapName: i.MapName,
		}}
	default:
		return capture.Event{Kind: capture.EventUnset}
	}
}
