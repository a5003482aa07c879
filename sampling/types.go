// Package sampling implements the two-stage (raw -> resolved -> sorted)
// aggregation of call stack samples into per-thread function reports.
package sampling

// SummaryThreadID is the synthetic thread ID under which a summary row
// aggregating every thread's samples is kept, when summary generation is
// enabled.
const SummaryThreadID uint32 = 0

// SampledFunction is one row of a thread's sample report: a function's
// exclusive and inclusive presence across all samples taken on that
// thread.
type SampledFunction struct {
	Name      string
	Module    string
	File      string
	Line      uint32
	Address   uint64
	Exclusive float64
	Inclusive float64
}

// CallstackCount pairs a raw callstack's hash with how many times it was
// sampled, used by SortedCallstackReport.
type CallstackCount struct {
	Count      int
	CallstackID uint64
}

// SortedCallstackReport answers "which call stacks passed through this
// address, ordered by how often", for drilling from a function down into
// the individual stacks that contributed to it.
type SortedCallstackReport struct {
	NumCallStacksTotal int
	CallStacks         []CallstackCount
}

// ThreadSampleData is one thread's (or, for the summary row, every
// thread's) worth of aggregated sample data.
type ThreadSampleData struct {
	TID uint32

	NumSamples int

	CallstackCount map[uint64]uint32 // raw callstack hash -> times sampled
	ExclusiveCount map[uint64]uint32 // resolved function addr -> exclusive samples
	AddressCount   map[uint64]uint32 // resolved function addr -> inclusive samples

	ThreadUsage        []float64
	AverageThreadUsage float64

	SampleReport []SampledFunction
}

func newThreadSampleData(tid uint32) *ThreadSampleData {
	return &ThreadSampleData{
		TID:            tid,
		CallstackCount: make(map[uint64]uint32),
		ExclusiveCount: make(map[uint64]uint32),
		AddressCount:   make(map[uint64]uint32),
	}
}

func (d *ThreadSampleData) computeAverageThreadUsage() {
	d.AverageThreadUsage = 0
	if len(d.ThreadUsage) == 0 {
		return
	}
	var sum float64
	for _, u := range d.ThreadUsage {
		sum += u
	}
	d.AverageThreadUsage = sum / float64(len(d.ThreadUsage))
}

// sortCallstacks ranks the given raw callstack hashes by this thread's
// sample count for each, ascending, and reports the total sample count
// across all of them.
func (d *ThreadSampleData) sortCallstacks(hashes map[uint64]struct{}) ([]CallstackCount, int) {
	result := make([]CallstackCount, 0, len(hashes))
	total := 0
	for id := range hashes {
		count, ok := d.CallstackCount[id]
		if !ok {
			continue
		}
		result = append(result, CallstackCount{Count: int(count), CallstackID: id})
		total += int(count)
	}
	sortCallstackCountsAscending(result)
	return result, total
}
