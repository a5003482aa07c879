// Package report builds the final, UI-facing view over a sample
// aggregation: one table per thread, in whichever order the caller asked
// for.
package report

import (
	"sort"

	"github.com/orbitcore/profiler/sampling"
)

// SortMode selects how ThreadTables orders its rows.
type SortMode int

const (
	// SortByThreadUsage orders threads by descending average thread
	// usage, with the summary thread (if present) always first.
	SortByThreadUsage SortMode = iota
	// SortByThreadID orders threads by descending thread ID.
	SortByThreadID
)

// ThreadTable is one thread's sample report, ready for display.
type ThreadTable struct {
	TID                uint32
	Name               string
	NumSamples         int
	AverageThreadUsage float64
	Functions          []sampling.SampledFunction
}

// Builder produces ThreadTables from an Aggregator's last ProcessSamples
// result, resolving thread names via an optional lookup.
type Builder struct {
	Aggregator  *sampling.Aggregator
	ThreadNames map[uint32]string
}

// NewBuilder returns a Builder reading from agg's last processed result.
func NewBuilder(agg *sampling.Aggregator, threadNames map[uint32]string) *Builder {
	return &Builder{Aggregator: agg, ThreadNames: threadNames}
}

// Build returns one ThreadTable per thread that had samples, ordered per
// mode.
func (b *Builder) Build(mode SortMode) []ThreadTable {
	if mode == SortByThreadID {
		b.Aggregator.SortByThreadID()
	}

	rows := b.Aggregator.SortedThreadSampleData()
	if mode != SortByThreadID {
		// A previous SortByThreadID call leaves the aggregator in thread-ID
		// order, so re-sort this copy by descending thread usage.
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].AverageThreadUsage > rows[j].AverageThreadUsage
		})
	}
	tables := make([]ThreadTable, 0, len(rows))
	for _, r := range rows {
		name := b.ThreadNames[r.TID]
		if r.TID == sampling.SummaryThreadID && name == "" {
			name = "All"
		}
		tables = append(tables, ThreadTable{
			TID:                r.TID,
			Name:               name,
			NumSamples:         r.NumSamples,
			AverageThreadUsage: r.AverageThreadUsage,
			Functions:          r.SampleReport,
		})
	}
	return tables
}
