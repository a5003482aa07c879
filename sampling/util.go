package sampling

import "sort"

// sortCallstackCountsAscending orders by count first, then by callstack ID,
// mirroring the total order std::multimap<int, CallstackID> gives for equal
// keys (insertion order is not guaranteed there either, so tie-breaking on
// ID keeps this side deterministic).
func sortCallstackCountsAscending(cs []CallstackCount) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Count != cs[j].Count {
			return cs[i].Count < cs[j].Count
		}
		return cs[i].CallstackID < cs[j].CallstackID
	})
}
