package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/capture"
	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/process"
	"github.com/orbitcore/profiler/symtab"
)

func newIndexWithModule(t *testing.T) *process.Index {
	t.Helper()
	idx := process.New()
	m := symtab.New("/bin/app", 0x1000, 0x9000)
	m.LoadSymbols(symtab.ModuleSymbols{
		Symbols: []symtab.SymbolInfo{
			{Name: "foo", DemangledName: "foo", Address: 0x500, Size: 0x100},
			{Name: "bar", DemangledName: "bar", Address: 0x700, Size: 0x100},
		},
	})
	idx.AddModule(m)
	return idx
}

func TestProcessSamplesResolvesAddressesWithinLoadedFunctions(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)
	agg.GenerateSummary = false

	// foo calls bar: the two PCs fall inside foo's and bar's relative
	// ranges after the module's [0x1000,0x9000) start is added back.
	cs := intern.NewCallStack(1, []uint64{0x1701, 0x1501}) // bar, then foo (leaf first)
	agg.AddCallstack(cs)
	agg.ProcessSamples()

	rows := agg.SortedThreadSampleData()
	assert.Len(t, rows, 1)
	assert.Equal(t, uint32(1), rows[0].TID)
	assert.Equal(t, 1, rows[0].NumSamples)
	assert.Len(t, rows[0].SampleReport, 2)

	names := map[string]bool{}
	addrs := map[string]uint64{}
	for _, sf := range rows[0].SampleReport {
		names[sf.Name] = true
		addrs[sf.Name] = sf.Address
		assert.Equal(t, float64(100), sf.Inclusive)
	}
	assert.True(t, names["bar"])
	assert.True(t, names["foo"])
	// Address must be the function's own relative virtual address, not
	// the module-base-adjusted absolute address (0x1500/0x1700): the same
	// function must bucket identically no matter where its module loads.
	assert.Equal(t, uint64(0x500), addrs["foo"])
	assert.Equal(t, uint64(0x700), addrs["bar"])
}

func TestProcessSamplesExclusiveCountsOnlyLeafFrame(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)

	cs := intern.NewCallStack(1, []uint64{0x1701, 0x1501}) // leaf=bar
	agg.AddCallstack(cs)
	agg.ProcessSamples()

	rows := agg.SortedThreadSampleData()
	var bar, foo *SampledFunction
	for i := range rows[0].SampleReport {
		sf := &rows[0].SampleReport[i]
		if sf.Name == "bar" {
			bar = sf
		}
		if sf.Name == "foo" {
			foo = sf
		}
	}
	assert.Equal(t, float64(100), bar.Exclusive)
	assert.Equal(t, float64(0), foo.Exclusive)
}

func TestProcessSamplesFallsBackToAddressInfoWhenNoModuleLoaded(t *testing.T) {
	idx := process.New() // no modules
	agg := NewAggregator(idx)
	agg.OnAddressInfo(capture.LinuxAddressInfo{
		AbsoluteAddress:  0xdead0,
		FunctionName:     "remote_fn",
		OffsetInFunction: 0x10,
	})

	cs := intern.NewCallStack(1, []uint64{0xdead0})
	agg.AddCallstack(cs)
	agg.ProcessSamples()

	rows := agg.SortedThreadSampleData()
	assert.Len(t, rows[0].SampleReport, 1)
	assert.Equal(t, "remote_fn", rows[0].SampleReport[0].Name)
	assert.Equal(t, uint64(0xdead0-0x10), rows[0].SampleReport[0].Address)
}

func TestProcessSamplesUnresolvedAddressFallsBackToItself(t *testing.T) {
	idx := process.New()
	agg := NewAggregator(idx)

	cs := intern.NewCallStack(1, []uint64{0x12345})
	agg.AddCallstack(cs)
	agg.ProcessSamples()

	rows := agg.SortedThreadSampleData()
	assert.Equal(t, "???", rows[0].SampleReport[0].Name)
	assert.Equal(t, uint64(0x12345), rows[0].SampleReport[0].Address)
}

func TestProcessSamplesGeneratesSummaryRowAtFullUsage(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)

	agg.AddCallstack(intern.NewCallStack(1, []uint64{0x1501}))
	agg.AddCallstack(intern.NewCallStack(2, []uint64{0x1701}))
	agg.ProcessSamples()

	rows := agg.SortedThreadSampleData()
	var summary *ThreadSampleData
	for _, r := range rows {
		if r.TID == SummaryThreadID {
			summary = r
		}
	}
	assert.NotNil(t, summary)
	assert.Equal(t, 2, summary.NumSamples)
	assert.Equal(t, float64(100), summary.AverageThreadUsage)
}

func TestDuplicateContentStacksAcrossThreadsDedupRawButNotPerThreadCounts(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)

	agg.AddCallstack(intern.NewCallStack(1, []uint64{0x1501}))
	agg.AddCallstack(intern.NewCallStack(1, []uint64{0x1501}))
	agg.AddCallstack(intern.NewCallStack(2, []uint64{0x1501}))
	agg.ProcessSamples()

	cc, total := agg.GetCallstacksFromAddress(0x500, 1)
	assert.Equal(t, 2, total)
	assert.Len(t, cc, 1)

	cc2, total2 := agg.GetCallstacksFromAddress(0x500, 2)
	assert.Equal(t, 1, total2)
	assert.Len(t, cc2, 1)
}

func TestGetSortedCallstacksFromAddressOrdersDescending(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)

	rare := intern.NewCallStack(1, []uint64{0x1501, 0x1701})
	common := intern.NewCallStack(1, []uint64{0x1701})
	agg.AddCallstack(rare)
	agg.AddCallstack(common)
	agg.AddCallstack(common)
	agg.ProcessSamples()

	report := agg.GetSortedCallstacksFromAddress(0x700, 1) // bar's start address
	assert.Equal(t, 3, report.NumCallStacksTotal)
	assert.True(t, len(report.CallStacks) >= 1)
	for i := 1; i < len(report.CallStacks); i++ {
		assert.GreaterOrEqual(t, report.CallStacks[i-1].Count, report.CallStacks[i].Count)
	}
}

func TestAddHashedUnknownHashIsIgnoredNotFatal(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)

	agg.AddHashed(capture.CallstackEvent{Hash: 0xffff, TID: 1})
	agg.ProcessSamples()

	assert.Equal(t, 0, agg.NumSamples())
}

func TestProcessSamplesIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	idx := newIndexWithModule(t)
	agg := NewAggregator(idx)
	agg.AddCallstack(intern.NewCallStack(1, []uint64{0x1501}))
	agg.ProcessSamples()
	first := agg.NumSamples()

	agg.ProcessSamples()
	assert.Equal(t, first, agg.NumSamples())
}
