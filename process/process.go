// Package process maintains the set of modules loaded into a traced
// process and forwards address-to-function resolution to the module that
// owns the address.
package process

import (
	"sort"
	"sync"

	"github.com/orbitcore/profiler/symtab"
)

// Index is the Process Index: a process's set of Modules keyed by
// absolute address range, plus a process-wide function directory for
// reverse lookup by absolute address.
type Index struct {
	mu      sync.RWMutex
	modules []*symtab.Module // kept sorted by Start
	byAddr  map[uint64]*symtab.Function
}

// New returns an empty Process Index.
func New() *Index {
	return &Index{byAddr: make(map[uint64]*symtab.Function)}
}

// AddModule registers a module with the index. Modules must not overlap;
// AddModule keeps the module list sorted by start address to support
// ModuleFor's binary search.
func (idx *Index) AddModule(m *symtab.Module) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i := sort.Search(len(idx.modules), func(i int) bool { return idx.modules[i].Start >= m.Start })
	idx.modules = append(idx.modules, nil)
	copy(idx.modules[i+1:], idx.modules[i:])
	idx.modules[i] = m
}

// RemoveModule drops a module from the index, e.g. when it is unloaded.
func (idx *Index) RemoveModule(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, m := range idx.modules {
		if m.Path == path {
			idx.modules = append(idx.modules[:i], idx.modules[i+1:]...)
			return
		}
	}
}

// ModuleFor returns the module whose [Start, End) range contains pc.
func (idx *Index) ModuleFor(pcAbsolute uint64) (*symtab.Module, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	// last module with Start <= pcAbsolute
	i := sort.Search(len(idx.modules), func(i int) bool { return idx.modules[i].Start > pcAbsolute })
	if i == 0 {
		return nil, false
	}
	m := idx.modules[i-1]
	if m.ContainsAddress(pcAbsolute) {
		return m, true
	}
	return nil, false
}

// FunctionFor resolves a module for pc and then delegates to either
// FunctionAtExact or FunctionContaining depending on requireExact.
func (idx *Index) FunctionFor(pcAbsolute uint64, requireExact bool) (*symtab.Function, bool) {
	m, ok := idx.ModuleFor(pcAbsolute)
	if !ok {
		return nil, false
	}
	if requireExact {
		return m.FunctionAtExact(pcAbsolute)
	}
	return m.FunctionContaining(pcAbsolute)
}

// AddFunction registers fn into the process-wide function directory keyed
// by its absolute address, for reverse lookup by the UI.
func (idx *Index) AddFunction(fn *symtab.Function, absoluteAddr uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byAddr[absoluteAddr] = fn
}

// FunctionByAbsoluteAddress is the reverse lookup AddFunction populates.
func (idx *Index) FunctionByAbsoluteAddress(absoluteAddr uint64) (*symtab.Function, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	fn, ok := idx.byAddr[absoluteAddr]
	return fn, ok
}

// DataLock grants exclusive mutation access to the index's module and
// function collections. Callers must invoke the returned function to
// release the lock. It excludes the index's own methods only: a Module's
// symbol table is guarded by that Module's lock, so LoadSymbols is not
// blocked by it. The Sample Aggregator does not take this lock; each
// FunctionFor/ModuleFor call during its resolution pass takes the read
// lock on its own, so a lock holder must not call those methods.
func (idx *Index) DataLock() func() {
	idx.mu.Lock()
	return idx.mu.Unlock
}
