package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/process"
	"github.com/orbitcore/profiler/sampling"
	"github.com/orbitcore/profiler/symtab"
)

func newAggregatorWithTwoThreads(t *testing.T) *sampling.Aggregator {
	t.Helper()
	idx := process.New()
	m := symtab.New("/bin/app", 0x1000, 0x9000)
	m.LoadSymbols(symtab.ModuleSymbols{
		Symbols: []symtab.SymbolInfo{{Name: "foo", DemangledName: "foo", Address: 0x500}},
	})
	idx.AddModule(m)

	agg := sampling.NewAggregator(idx)
	agg.AddCallstack(intern.NewCallStack(5, []uint64{0x1501}))
	agg.AddCallstack(intern.NewCallStack(9, []uint64{0x1501}))
	agg.ProcessSamples()
	return agg
}

func TestBuildBySortByThreadUsageSummaryFirst(t *testing.T) {
	agg := newAggregatorWithTwoThreads(t)
	b := NewBuilder(agg, map[uint32]string{5: "worker-5", 9: "worker-9"})

	tables := b.Build(SortByThreadUsage)
	assert.Equal(t, sampling.SummaryThreadID, tables[0].TID)
	assert.Equal(t, "All", tables[0].Name)
	assert.Equal(t, float64(100), tables[0].AverageThreadUsage)
}

func TestBuildBySortByThreadIDDescending(t *testing.T) {
	agg := newAggregatorWithTwoThreads(t)
	b := NewBuilder(agg, nil)

	tables := b.Build(SortByThreadID)
	var tids []uint32
	for _, tbl := range tables {
		tids = append(tids, tbl.TID)
	}
	for i := 1; i < len(tids); i++ {
		assert.GreaterOrEqual(t, tids[i-1], tids[i])
	}
}

func TestBuildCarriesFunctionRowsThrough(t *testing.T) {
	agg := newAggregatorWithTwoThreads(t)
	b := NewBuilder(agg, nil)

	tables := b.Build(SortByThreadUsage)
	for _, tbl := range tables {
		if tbl.TID == 5 {
			assert.Len(t, tbl.Functions, 1)
			assert.Equal(t, "foo", tbl.Functions[0].Name)
		}
	}
}
