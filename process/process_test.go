package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/symtab"
)

func newModule(t *testing.T, path string, start, end uint64, syms []symtab.SymbolInfo) *symtab.Module {
	t.Helper()
	m := symtab.New(path, start, end)
	if syms != nil {
		m.LoadSymbols(symtab.ModuleSymbols{Symbols: syms})
	}
	return m
}

func TestModuleForAndFunctionFor(t *testing.T) {
	idx := New()
	m1 := newModule(t, "/bin/a", 0x1000, 0x2000, []symtab.SymbolInfo{{Name: "f1", Address: 0x500}})
	m2 := newModule(t, "/bin/b", 0x5000, 0x6000, []symtab.SymbolInfo{{Name: "f2", Address: 0x10}})
	idx.AddModule(m1)
	idx.AddModule(m2)

	got, ok := idx.ModuleFor(0x1500)
	assert.True(t, ok)
	assert.Equal(t, m1, got)

	_, ok = idx.ModuleFor(0x3000)
	assert.False(t, ok)

	fn, ok := idx.FunctionFor(0x1500, false)
	assert.True(t, ok)
	assert.Equal(t, "f1", fn.Name)

	_, ok = idx.FunctionFor(0x1500, true)
	assert.True(t, ok)
}

func TestAddFunctionAndReverseLookup(t *testing.T) {
	idx := New()
	fn := &symtab.Function{Name: "f"}
	idx.AddFunction(fn, 0xabc)

	got, ok := idx.FunctionByAbsoluteAddress(0xabc)
	assert.True(t, ok)
	assert.Equal(t, fn, got)
}

func TestRemoveModule(t *testing.T) {
	idx := New()
	m := newModule(t, "/bin/a", 0x1000, 0x2000, nil)
	idx.AddModule(m)
	idx.RemoveModule("/bin/a")
	_, ok := idx.ModuleFor(0x1500)
	assert.False(t, ok)
}

func TestManagerNotifiesAddedAndRemoved(t *testing.T) {
	idx := New()
	call := 0
	mgr := NewManager(idx, time.Millisecond, func() ([]ModuleSnapshot, error) {
		call++
		if call == 1 {
			return []ModuleSnapshot{{Path: "/bin/a", Start: 0x1000, End: 0x2000}}, nil
		}
		return nil, nil
	})

	var gotAdded, gotRemoved []string
	mgr.OnModuleListChanged(func(added, removed []string) {
		gotAdded = append(gotAdded, added...)
		gotRemoved = append(gotRemoved, removed...)
	})

	mgr.refresh()
	assert.Equal(t, []string{"/bin/a"}, gotAdded)

	mgr.refresh()
	assert.Equal(t, []string{"/bin/a"}, gotRemoved)
}
