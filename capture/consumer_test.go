package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/intern"
)

type fakeListener struct {
	timers         []Timer
	callstacks     []CallstackEvent
	threadNames    map[uint32]string
	addressInfos   []LinuxAddressInfo
	doneProcessing bool
}

func newFakeListener() *fakeListener {
	return &fakeListener{threadNames: make(map[uint32]string)}
}

func (l *fakeListener) OnTimer(t Timer)                   { l.timers = append(l.timers, t) }
func (l *fakeListener) OnCallstackEvent(ev CallstackEvent) { l.callstacks = append(l.callstacks, ev) }
func (l *fakeListener) OnThreadName(tid uint32, name string) { l.threadNames[tid] = name }
func (l *fakeListener) OnAddressInfo(info LinuxAddressInfo) { l.addressInfos = append(l.addressInfos, info) }
func (l *fakeListener) OnDoneProcessing()                  { l.doneProcessing = true }

func TestSchedulingSliceProducesCoreActivityTimer(t *testing.T) {
	l := newFakeListener()
	c := NewConsumer(l, intern.New())

	c.Consume(Event{Kind: EventSchedulingSlice, SchedulingSlice: &SchedulingSlice{
		InTimestampNs: 100, OutTimestampNs: 200, PID: 1, TID: 2, Core: 3,
	}})

	assert.Len(t, l.timers, 1)
	assert.Equal(t, TimerCoreActivity, l.timers[0].Type)
	assert.Equal(t, int16(3), l.timers[0].Processor)
}

func TestCallstackSampleByKeyResolvesThroughInternPool(t *testing.T) {
	l := newFakeListener()
	pools := intern.New()
	c := NewConsumer(l, pools)

	c.Consume(Event{Kind: EventInternedCallstack, InternedCallstack: &InternedCallstack{
		Key: 7, PCs: []uint64{0x10, 0x20}, TID: 1,
	}})
	c.Consume(Event{Kind: EventCallstackSample, CallstackSample: &CallstackSample{
		TimestampNs: 1, TID: 1, HasKey: true, CallstackKey: 7,
	}})

	assert.Len(t, l.callstacks, 1)
	cs, ok := pools.Stack(7)
	assert.True(t, ok)
	assert.Equal(t, cs.Hash(), l.callstacks[0].Hash)
}

func TestCallstackSampleWithUnknownKeyIsSkippedNotFatal(t *testing.T) {
	l := newFakeListener()
	c := NewConsumer(l, intern.New())

	c.Consume(Event{Kind: EventCallstackSample, CallstackSample: &CallstackSample{
		TimestampNs: 1, TID: 1, HasKey: true, CallstackKey: 999,
	}})

	assert.Len(t, l.callstacks, 0)
}

func TestCallstackSampleInlineFramesInternOnFirstSightOnly(t *testing.T) {
	l := newFakeListener()
	pools := intern.New()
	c := NewConsumer(l, pools)

	c.Consume(Event{Kind: EventCallstackSample, CallstackSample: &CallstackSample{
		TimestampNs: 1, TID: 1, PCs: []uint64{0x10, 0x20},
	}})
	c.Consume(Event{Kind: EventCallstackSample, CallstackSample: &CallstackSample{
		TimestampNs: 2, TID: 1, PCs: []uint64{0x10, 0x20},
	}})

	assert.Equal(t, l.callstacks[0].Hash, l.callstacks[1].Hash)
}

func TestGpuJobProducesThreeTimersWithInternedLabels(t *testing.T) {
	l := newFakeListener()
	c := NewConsumer(l, intern.New())

	c.Consume(Event{Kind: EventGpuJob, GpuJob: &GpuJob{
		TID: 5, Depth: 1,
		AmdgpuCsIoctlTimeNs:     10,
		AmdgpuSchedRunJobTimeNs: 20,
		GpuHardwareStartTimeNs:  30,
		DmaFenceSignaledTimeNs:  40,
		Timeline:                "gfx",
	}})

	assert.Len(t, l.timers, 3)
	for _, timer := range l.timers {
		assert.Equal(t, TimerGpuActivity, timer.Type)
		assert.NotZero(t, timer.UserData[1]) // timeline hash shared across all three
	}
	assert.Equal(t, l.timers[0].UserData[1], l.timers[1].UserData[1])
	assert.Equal(t, l.timers[1].UserData[1], l.timers[2].UserData[1])
}

func TestThreadNameAndAddressInfoDispatch(t *testing.T) {
	l := newFakeListener()
	pools := intern.New()
	c := NewConsumer(l, pools)

	c.Consume(Event{Kind: EventThreadName, ThreadName: &ThreadName{TID: 9, Name: "worker"}})
	assert.Equal(t, "worker", l.threadNames[9])

	c.Consume(Event{Kind: EventInternedString, InternedString: &InternedString{Key: 1, Value: "libc.so"}})
	c.Consume(Event{Kind: EventAddressInfo, AddressInfo: &AddressInfo{
		AbsoluteAddress: 0x1000, OffsetInFunction: 4,
		HasMapNameKey: true, MapNameKey: 1,
		FunctionName: "malloc",
	}})

	assert.Len(t, l.addressInfos, 1)
	assert.Equal(t, "libc.so", l.addressInfos[0].MapName)
	assert.Equal(t, "malloc", l.addressInfos[0].FunctionName)
}

func TestUnsetEventIsLoggedAndSkipped(t *testing.T) {
	l := newFakeListener()
	c := NewConsumer(l, intern.New())

	c.Consume(Event{Kind: EventUnset})

	assert.Empty(t, l.timers)
	assert.Empty(t, l.callstacks)
}

func TestConsumeAllFiresDoneProcessing(t *testing.T) {
	l := newFakeListener()
	c := NewConsumer(l, intern.New())

	ch := make(chan Event, 1)
	ch <- Event{Kind: EventThreadName, ThreadName: &ThreadName{TID: 1, Name: "main"}}
	close(ch)

	c.ConsumeAll(ch)

	assert.True(t, l.doneProcessing)
	assert.Equal(t, "main", l.threadNames[1])
}
