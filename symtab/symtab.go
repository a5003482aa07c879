// Package symtab resolves raw instruction addresses to the functions that
// own them. A Module owns exactly one Symbol Table; the Symbol Table owns
// the Function records installed into its Address Map.
package symtab

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// BadAddress is the sentinel ValidateAddress returns when neither the
// address itself nor its RVA-interpretation falls inside the module's
// range. Named 0xbadadd in the original Orbit sources.
const BadAddress uint64 = 0x00000000_00badadd

// UnknownName is used whenever a function or module name cannot be
// determined.
const UnknownName = "???"

// Function is a named code region: the unit symbol resolution ultimately
// resolves addresses to.
type Function struct {
	Name           string
	DemangledName  string
	VirtualAddress uint64 // relative address, load-bias adjusted
	Size           uint64
	ModulePath     string
	SourceFile     string
	SourceLine     uint32
	Selected       bool

	hash     uint64
	hashOnce sync.Once
}

// PrettyName returns the demangled name when present, falling back to the
// mangled name.
func (f *Function) PrettyName() string {
	if f.DemangledName != "" {
		return f.DemangledName
	}
	return f.Name
}

// Hash returns a stable 64-bit hash over the function's pretty name, used
// to match functions named in a Preset across capture sessions.
func (f *Function) Hash() uint64 {
	f.hashOnce.Do(func() {
		f.hash = xxhash.Sum64String(f.PrettyName())
	})
	return f.hash
}

// SymbolInfo is one entry of a ModuleSymbols payload: a single symbol as
// reported by an already-parsed executable image.
type SymbolInfo struct {
	Name          string
	DemangledName string
	Address       uint64 // relative address before load-bias adjustment
	Size          uint64
	SourceFile    string
	SourceLine    uint32
}

// ModuleSymbols is the payload accepted by Module.LoadSymbols.
type ModuleSymbols struct {
	LoadBias        uint64
	SymbolsFilePath string
	Symbols         []SymbolInfo
}

// AddressMap is an ordered mapping from relative address to the Function
// that starts there. Lookups assume functions are non-overlapping.
type AddressMap struct {
	keys  []uint64
	funcs map[uint64]*Function
}

func newAddressMap() *AddressMap {
	return &AddressMap{funcs: make(map[uint64]*Function)}
}

// Insert adds or replaces the function at the given relative address.
func (m *AddressMap) Insert(addr uint64, fn *Function) {
	if _, exists := m.funcs[addr]; !exists {
		i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= addr })
		m.keys = append(m.keys, 0)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = addr
	}
	m.funcs[addr] = fn
}

// Get returns the function installed at exactly this relative address.
func (m *AddressMap) Get(addr uint64) (*Function, bool) {
	fn, ok := m.funcs[addr]
	return fn, ok
}

// Floor returns the function whose key is the greatest key <= addr. This is
// upper_bound(addr) stepped back by one, matching the source's
// "function_containing" semantics: it does not verify addr falls inside
// [key, key+size).
func (m *AddressMap) Floor(addr uint64) (*Function, bool) {
	// first key strictly greater than addr
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] > addr })
	if i == 0 {
		return nil, false
	}
	return m.funcs[m.keys[i-1]], true
}

// Len returns the number of installed functions.
func (m *AddressMap) Len() int { return len(m.keys) }

// SymbolTable is the ordered map of relative-address -> Function owned by
// exactly one Module, plus a secondary hash(pretty-name) -> Function index
// used by preset matching.
type SymbolTable struct {
	addrs    *AddressMap
	byHash   map[uint64]*Function
	loadBias uint64
}

func newSymbolTable(loadBias uint64) *SymbolTable {
	return &SymbolTable{
		addrs:    newAddressMap(),
		byHash:   make(map[uint64]*Function),
		loadBias: loadBias,
	}
}

func (st *SymbolTable) add(fn *Function) {
	st.addrs.Insert(fn.VirtualAddress, fn)
	st.byHash[fn.Hash()] = fn
}

// FunctionByHash looks up a function by the hash of its pretty name, used
// by Module.ApplyPreset.
func (st *SymbolTable) FunctionByHash(hash uint64) (*Function, bool) {
	fn, ok := st.byHash[hash]
	return fn, ok
}

// Module is a loaded executable image: a half-open absolute address range,
// a load bias, and (once loaded) an immutable Symbol Table.
type Module struct {
	Path      string
	BaseName  string
	Directory string
	FileSize  int64

	Start    uint64
	End      uint64
	LoadBias uint64

	Loadable bool
	Loaded   bool

	mu          sync.RWMutex
	symbols     *SymbolTable
	prettyName  string
	addressText string
}

// existsFn is overridable in tests to avoid touching the real filesystem.
var existsFn = defaultExists

// New validates that path exists (best-effort: logged, not fatal) and
// returns a Module describing [start, end). The caller is responsible for
// ensuring start < end; New does not itself enforce the invariant so
// that modules can be constructed incrementally from streaming metadata.
// ContainsAddress treats an empty or inverted range as containing nothing;
// FunctionAtExact and FunctionContaining do not check the range.
func New(path string, start, end uint64) *Module {
	if !existsFn(path) {
		logf("WARN: symtab: creating module from path %q: file does not exist", path)
	}
	return &Module{
		Path:      path,
		BaseName:  baseName(path),
		Directory: dirName(path),
		FileSize:  fileSize(path),
		Start:     start,
		End:       end,
		Loadable:  true,
	}
}

// ContainsAddress reports whether addr falls in [Start, End).
func (m *Module) ContainsAddress(addr uint64) bool {
	return m.Start <= addr && addr < m.End
}

// ValidateAddress returns addr if it already falls in range, Start+addr if
// that RVA interpretation falls in range, or BadAddress otherwise.
func (m *Module) ValidateAddress(addr uint64) uint64 {
	if m.ContainsAddress(addr) {
		return addr
	}
	if rva := m.Start + addr; m.ContainsAddress(rva) {
		return rva
	}
	return BadAddress
}

// relative converts an absolute PC to the relative address the Symbol
// Table is keyed by.
func (m *Module) relative(pcAbsolute uint64) uint64 {
	return pcAbsolute - m.Start + m.LoadBias
}

// LoadSymbols builds Function records from the payload and installs them
// into a fresh Symbol Table, overwriting (with a warning) any table
// already present. Once installed, Loaded becomes true and the table must
// not be mutated further.
func (m *Module) LoadSymbols(ms ModuleSymbols) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.symbols != nil {
		logf("WARN: symtab: module %s already contained symbols, overwriting", m.BaseName)
	}

	m.LoadBias = ms.LoadBias
	table := newSymbolTable(ms.LoadBias)
	for _, si := range ms.Symbols {
		fn := &Function{
			Name:           si.Name,
			DemangledName:  si.DemangledName,
			VirtualAddress: si.Address,
			Size:           si.Size,
			ModulePath:     m.Path,
			SourceFile:     si.SourceFile,
			SourceLine:     si.SourceLine,
		}
		table.add(fn)
	}
	m.symbols = table
	m.Loaded = true
}

// FunctionAtExact returns the function starting at exactly the relative
// address pcAbsolute maps to.
func (m *Module) FunctionAtExact(pcAbsolute uint64) (*Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.symbols == nil {
		return nil, false
	}
	return m.symbols.addrs.Get(m.relative(pcAbsolute))
}

// FunctionContaining returns the function whose start address is the
// greatest one not exceeding pcAbsolute's relative address. It does not
// check pcAbsolute < function.end, so an address past the end of the last
// known function's body still resolves to that function.
func (m *Module) FunctionContaining(pcAbsolute uint64) (*Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.symbols == nil {
		return nil, false
	}
	return m.symbols.addrs.Floor(m.relative(pcAbsolute))
}

// ApplyPreset marks selected every function in this module whose pretty-name
// hash appears in the preset's entry for this module's path.
func (m *Module) ApplyPreset(preset Preset) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.symbols == nil {
		return
	}
	entry, ok := preset.Modules[m.Path]
	if !ok {
		return
	}
	for _, hash := range entry.FunctionHashes {
		if fn, ok := m.symbols.FunctionByHash(hash); ok {
			fn.Selected = true
		}
	}
}

// Walk calls fn for every function in the module's Symbol Table, in
// ascending relative-address order. It is a no-op on a module with no
// symbols loaded.
func (m *Module) Walk(fn func(*Function)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.symbols == nil {
		return
	}
	for _, addr := range m.symbols.addrs.keys {
		fn(m.symbols.addrs.funcs[addr])
	}
}

// PrettyName returns (and caches) a human-readable description of the
// module, mirroring Orbit's Module::GetPrettyName.
func (m *Module) PrettyName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prettyName == "" {
		m.prettyName = m.Path
		m.addressText = fmt.Sprintf("[%016x - %016x]", m.Start, m.End)
	}
	return m.prettyName
}

// AddressRange returns (and caches) the "[start - end]" display string.
func (m *Module) AddressRange() string {
	m.PrettyName()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addressText
}

// Preset associates a set of function-name hashes with the module path
// they belong to, for re-selecting the same functions across captures.
type Preset struct {
	Modules map[string]PresetModule
}

// PresetModule is one module's worth of preset-selected functions.
type PresetModule struct {
	FunctionHashes []uint64
}
