package sampling

import (
	"log"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/orbitcore/profiler/capture"
	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/process"
)

// Aggregator is the Sample Aggregator: it owns every raw callstack sample
// taken during a capture, resolves them against a process's loaded
// symbols, and produces a per-thread function report. It implements
// capture.Listener directly so a Consumer can feed it without an
// intermediate adapter.
type Aggregator struct {
	Process *process.Index

	// GenerateSummary controls whether a synthetic SummaryThreadID row
	// aggregating every thread's samples is produced alongside the
	// per-thread ones.
	GenerateSummary bool

	mu sync.Mutex

	callstacks       []capture.CallstackEvent
	uniqueCallstacks map[uint64]*intern.CallStack // raw hash -> raw stack

	addressInfo map[uint64]capture.LinuxAddressInfo
	threadNames map[uint32]string

	// derived state, rebuilt fresh by every call to ProcessSamples
	threadSampleData         map[uint32]*ThreadSampleData
	sortedThreadSampleData   []*ThreadSampleData
	uniqueResolvedCallstacks map[uint64]*intern.CallStack
	originalToResolved       map[uint64]uint64
	functionToCallstacks     map[uint64]mapset.Set // function addr -> set of raw hashes
	exactAddrToFunctionAddr  map[uint64]uint64
	addrToFunctionName       map[uint64]string
	addrToFunctionSource     map[uint64]sourceLocation

	numSamples int

	onDoneProcessing func()
}

// NewAggregator returns an empty Aggregator resolving addresses against
// idx.
func NewAggregator(idx *process.Index) *Aggregator {
	return &Aggregator{
		Process:          idx,
		GenerateSummary:  true,
		uniqueCallstacks: make(map[uint64]*intern.CallStack),
		addressInfo:      make(map[uint64]capture.LinuxAddressInfo),
		threadNames:      make(map[uint32]string),
	}
}

// OnDoneProcessingFunc registers the callback fired when ProcessSamples
// completes via OnDoneProcessing (the capture.Listener entry point).
func (a *Aggregator) OnDoneProcessingFunc(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDoneProcessing = fn
}

// hasCallstack reports whether hash is already in the raw pool.
func (a *Aggregator) hasCallstack(hash uint64) bool {
	_, ok := a.uniqueCallstacks[hash]
	return ok
}

// AddCallstack interns cs (if new) and records one sample of it.
func (a *Aggregator) AddCallstack(cs *intern.CallStack) {
	hash := cs.Hash()
	a.mu.Lock()
	if !a.hasCallstack(hash) {
		a.uniqueCallstacks[hash] = cs
	}
	a.callstacks = append(a.callstacks, capture.CallstackEvent{Hash: hash, TID: cs.ThreadID})
	a.mu.Unlock()
}

// AddHashed records one sample of an already-interned callstack, referenced
// only by hash. It is an error to pass a hash that hasn't reached the raw
// pool via AddCallstack or the CaptureListenerForPool bridge.
func (a *Aggregator) AddHashed(ev capture.CallstackEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasCallstack(ev.Hash) {
		log.Printf("ERROR: sampling: processed unknown callstack hash %d", ev.Hash)
		return
	}
	a.callstacks = append(a.callstacks, ev)
}

// OnTimer is a no-op: the aggregator only cares about call stack samples.
func (a *Aggregator) OnTimer(capture.Timer) {}

// OnCallstackEvent implements capture.Listener. The hash resolves only if
// the call stack already reached the aggregator's raw pool, through
// AddCallstack or the CaptureListenerForPool bridge installed on the
// intern pools; an event whose hash is not there is dropped uncounted.
func (a *Aggregator) OnCallstackEvent(ev capture.CallstackEvent) {
	a.mu.Lock()
	if !a.hasCallstack(ev.Hash) {
		// not in the raw pool: the sample is dropped.
		a.mu.Unlock()
		return
	}
	a.callstacks = append(a.callstacks, ev)
	a.mu.Unlock()
}

// OnThreadName implements capture.Listener.
func (a *Aggregator) OnThreadName(tid uint32, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threadNames[tid] = name
}

// OnAddressInfo implements capture.Listener.
func (a *Aggregator) OnAddressInfo(info capture.LinuxAddressInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addressInfo[info.AbsoluteAddress] = info
}

// OnDoneProcessing implements capture.Listener: it runs ProcessSamples and
// then fires the registered completion callback, if any.
func (a *Aggregator) OnDoneProcessing() {
	a.ProcessSamples()
	a.mu.Lock()
	cb := a.onDoneProcessing
	a.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// CaptureListenerForPool wraps a into an intern.Listener that records every
// newly-interned callstack into the raw pool, so call stacks referenced
// only inline (never added via AddCallstack) are still resolvable.
func (a *Aggregator) CaptureListenerForPool() intern.Listener {
	return internBridge{a}
}

type internBridge struct{ a *Aggregator }

func (b internBridge) OnCallstack(cs *intern.CallStack) {
	hash := cs.Hash()
	b.a.mu.Lock()
	if !b.a.hasCallstack(hash) {
		b.a.uniqueCallstacks[hash] = cs
	}
	b.a.mu.Unlock()
}

func (b internBridge) OnKeyAndString(uint64, string) {}

// ProcessSamples runs the full raw -> resolved -> sorted aggregation pass.
// It may be called more than once, e.g. after more samples arrive or a
// module's symbols finish loading; each call starts from the retained raw
// callstacks and rebuilds every derived structure from scratch.
func (a *Aggregator) ProcessSamples() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.threadSampleData = make(map[uint32]*ThreadSampleData)
	a.uniqueResolvedCallstacks = make(map[uint64]*intern.CallStack)
	a.originalToResolved = make(map[uint64]uint64)
	a.functionToCallstacks = make(map[uint64]mapset.Set)
	a.exactAddrToFunctionAddr = make(map[uint64]uint64)
	a.addrToFunctionName = make(map[uint64]string)
	a.addrToFunctionSource = make(map[uint64]sourceLocation)
	a.sortedThreadSampleData = nil

	for _, ev := range a.callstacks {
		if !a.hasCallstack(ev.Hash) {
			log.Printf("ERROR: sampling: processed unknown callstack!")
			continue
		}
		tsd := a.threadData(ev.TID)
		tsd.NumSamples++
		tsd.CallstackCount[ev.Hash]++

		if a.GenerateSummary {
			all := a.threadData(SummaryThreadID)
			all.NumSamples++
			all.CallstackCount[ev.Hash]++
		}
	}

	a.resolveCallstacks()

	for _, tsd := range a.threadSampleData {
		tsd.computeAverageThreadUsage()

		for hash, count := range tsd.CallstackCount {
			resolvedID := a.originalToResolved[hash]
			resolved := a.uniqueResolvedCallstacks[resolvedID]
			if resolved == nil || resolved.Depth == 0 {
				continue
			}

			tsd.ExclusiveCount[resolved.Data[0]] += count

			unique := mapset.NewThreadUnsafeSet()
			for i := uint32(0); i < resolved.Depth; i++ {
				unique.Add(resolved.Data[i])
			}
			for addr := range unique.Iter() {
				tsd.AddressCount[addr.(uint64)] += count
			}
		}
	}

	a.sortByThreadUsage()
	a.fillThreadSampleReports()

	a.numSamples = len(a.callstacks)
}

func (a *Aggregator) threadData(tid uint32) *ThreadSampleData {
	tsd, ok := a.threadSampleData[tid]
	if !ok {
		tsd = newThreadSampleData(tid)
		a.threadSampleData[tid] = tsd
	}
	return tsd
}

func (a *Aggregator) resolveCallstacks() {
	for rawID, raw := range a.uniqueCallstacks {
		resolved := raw.Clone()

		for i := uint32(0); i < raw.Depth; i++ {
			addr := raw.Data[i]

			if _, ok := a.exactAddrToFunctionAddr[addr]; !ok {
				a.updateAddressInfo(addr)
			}

			functionAddr, ok := a.exactAddrToFunctionAddr[addr]
			if !ok {
				continue
			}
			resolved.Data[i] = functionAddr

			set, ok := a.functionToCallstacks[functionAddr]
			if !ok {
				set = mapset.NewSet()
				a.functionToCallstacks[functionAddr] = set
			}
			set.Add(rawID)
		}

		resolvedID := resolved.Hash()
		if _, ok := a.uniqueResolvedCallstacks[resolvedID]; !ok {
			a.uniqueResolvedCallstacks[resolvedID] = resolved
		}
		a.originalToResolved[rawID] = resolvedID
	}
}

// sourceLocation is the file/line a function address resolved to, kept
// alongside its name for the final report row.
type sourceLocation struct {
	File string
	Line uint32
}

// updateAddressInfo resolves address to its owning function's start
// address, preferring a loaded symbol table and falling back to whatever
// the remote agent's own unwinder reported via an AddressInfo event.
//
// This association is load-bearing: anything not bucketed by the same
// function address is treated as belonging to a different function, so
// getting it wrong fragments otherwise-identical stacks. When a symbol
// table resolves the address, functionAddr is the function's own virtual
// (relative) address, never translated back into an absolute one: the
// same function must bucket identically across modules loaded at
// different bases. The AddressInfo and unresolved fallbacks yield
// absolute addresses.
func (a *Aggregator) updateAddressInfo(address uint64) {
	info, hasInfo := a.addressInfo[address]

	var functionAddr uint64
	var name string
	var source sourceLocation
	var hasFunction bool
	if a.Process != nil {
		if fn, ok := a.Process.FunctionFor(address, false); ok {
			functionAddr, name, hasFunction = fn.VirtualAddress, fn.PrettyName(), true
			source = sourceLocation{File: fn.SourceFile, Line: fn.SourceLine}
		}
	}

	functionName := "???"
	switch {
	case hasFunction:
		functionName = name
	case hasInfo:
		functionAddr = address - info.OffsetInFunction
		if info.FunctionName != "" {
			functionName = info.FunctionName
		}
	default:
		functionAddr = address
	}

	a.exactAddrToFunctionAddr[address] = functionAddr
	a.addrToFunctionName[address] = functionName
	a.addrToFunctionName[functionAddr] = functionName
	a.addrToFunctionSource[address] = source
	a.addrToFunctionSource[functionAddr] = source
}

func (a *Aggregator) sortByThreadUsage() {
	a.sortedThreadSampleData = make([]*ThreadSampleData, 0, len(a.threadSampleData))

	if all, ok := a.threadSampleData[SummaryThreadID]; ok {
		all.AverageThreadUsage = 100
	}

	for _, tsd := range a.threadSampleData {
		a.sortedThreadSampleData = append(a.sortedThreadSampleData, tsd)
	}
	sort.Slice(a.sortedThreadSampleData, func(i, j int) bool {
		return a.sortedThreadSampleData[i].AverageThreadUsage > a.sortedThreadSampleData[j].AverageThreadUsage
	})
}

// SortByThreadID re-sorts the last ProcessSamples result by descending TID,
// an alternate view the report builder can select instead of thread usage.
func (a *Aggregator) SortByThreadID() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sortedThreadSampleData = make([]*ThreadSampleData, 0, len(a.threadSampleData))
	for _, tsd := range a.threadSampleData {
		a.sortedThreadSampleData = append(a.sortedThreadSampleData, tsd)
	}
	sort.Slice(a.sortedThreadSampleData, func(i, j int) bool {
		return a.sortedThreadSampleData[i].TID > a.sortedThreadSampleData[j].TID
	})
}

func (a *Aggregator) fillThreadSampleReports() {
	for _, tsd := range a.threadSampleData {
		type addressCount struct {
			addr  uint64
			count uint32
		}
		counts := make([]addressCount, 0, len(tsd.AddressCount))
		for addr, count := range tsd.AddressCount {
			counts = append(counts, addressCount{addr, count})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			// std::multimap<count, ..., std::greater<>> keeps equal-key
			// entries in descending-address order here, not ascending.
			return counts[i].addr > counts[j].addr
		})

		tsd.SampleReport = tsd.SampleReport[:0]
		for _, ac := range counts {
			inclusive := 100 * float64(ac.count) / float64(tsd.NumSamples)
			exclusive := 0.0
			if excl, ok := tsd.ExclusiveCount[ac.addr]; ok {
				exclusive = 100 * float64(excl) / float64(tsd.NumSamples)
			}

			moduleName := "???"
			if a.Process != nil {
				if m, ok := a.Process.ModuleFor(ac.addr); ok {
					moduleName = m.BaseName
				}
			}

			source := a.addrToFunctionSource[ac.addr]
			tsd.SampleReport = append(tsd.SampleReport, SampledFunction{
				Name:      a.addrToFunctionName[ac.addr],
				Module:    moduleName,
				File:      source.File,
				Line:      source.Line,
				Address:   ac.addr,
				Exclusive: exclusive,
				Inclusive: inclusive,
			})
		}
	}
}

// SortedThreadSampleData returns the last ProcessSamples result, ordered by
// the thread-usage sort ProcessSamples applies, or by thread ID if
// SortByThreadID was called since.
func (a *Aggregator) SortedThreadSampleData() []*ThreadSampleData {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*ThreadSampleData, len(a.sortedThreadSampleData))
	copy(out, a.sortedThreadSampleData)
	return out
}

// NumSamples returns how many samples the last ProcessSamples call saw.
func (a *Aggregator) NumSamples() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.numSamples
}

// GetCallstacksFromAddress ranks, for a given thread, every raw callstack
// that passed through addr by how often that thread sampled it.
func (a *Aggregator) GetCallstacksFromAddress(addr uint64, tid uint32) ([]CallstackCount, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	set, ok := a.functionToCallstacks[addr]
	tsd, hasThread := a.threadSampleData[tid]
	if !ok || !hasThread {
		return nil, 0
	}

	hashes := make(map[uint64]struct{}, set.Cardinality())
	for id := range set.Iter() {
		hashes[id.(uint64)] = struct{}{}
	}
	return tsd.sortCallstacks(hashes)
}

// GetSortedCallstacksFromAddress is GetCallstacksFromAddress with the
// result reversed into descending-count order and wrapped for transport.
func (a *Aggregator) GetSortedCallstacksFromAddress(addr uint64, tid uint32) *SortedCallstackReport {
	ascending, total := a.GetCallstacksFromAddress(addr, tid)
	report := &SortedCallstackReport{
		NumCallStacksTotal: total,
		CallStacks:         make([]CallstackCount, len(ascending)),
	}
	for i, cc := range ascending {
		report.CallStacks[len(ascending)-1-i] = cc
	}
	return report
}
