package process

import (
	"sync"
	"time"

	"github.com/orbitcore/profiler/symtab"
)

// ModuleSnapshot describes one module as reported by the (out-of-scope)
// process-enumeration collaborator: Manager never enumerates modules
// itself, it only reacts to snapshots handed to it.
type ModuleSnapshot struct {
	Path       string
	Start, End uint64
}

// Manager periodically refreshes an Index's module set from externally
// supplied snapshots and notifies a listener when modules are added or
// removed, mirroring Orbit's ProcessManager without doing any OS-level
// process enumeration itself.
type Manager struct {
	Index           *Index
	RefreshInterval time.Duration
	Fetch           func() ([]ModuleSnapshot, error)
	OnError         func(error)

	listenersMu sync.Mutex
	listeners   []func(added, removed []string)

	stop chan struct{}
	wg   sync.WaitGroup

	known map[string]struct{}
}

// NewManager wires a Manager around an existing Process Index.
func NewManager(idx *Index, refresh time.Duration, fetch func() ([]ModuleSnapshot, error)) *Manager {
	return &Manager{
		Index:           idx,
		RefreshInterval: refresh,
		Fetch:           fetch,
		known:           make(map[string]struct{}),
	}
}

// OnModuleListChanged registers a listener invoked after each refresh with
// the set of module paths added and removed since the previous refresh.
func (m *Manager) OnModuleListChanged(fn func(added, removed []string)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start begins the periodic refresh loop on a new goroutine.
func (m *Manager) Start() {
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.loop()
}

// Shutdown stops the refresh loop and waits for it to exit. It may take up
// to RefreshInterval to return.
func (m *Manager) Shutdown() {
	close(m.stop)
	m.wg.Wait()
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) refresh() {
	snapshots, err := m.Fetch()
	if err != nil {
		if m.OnError != nil {
			m.OnError(err)
		}
		return
	}

	seen := make(map[string]struct{}, len(snapshots))
	var added []string
	for _, snap := range snapshots {
		seen[snap.Path] = struct{}{}
		if _, ok := m.known[snap.Path]; !ok {
			mod := symtab.New(snap.Path, snap.Start, snap.End)
			m.Index.AddModule(mod)
			added = append(added, snap.Path)
		}
	}

	var removed []string
	for path := range m.known {
		if _, ok := seen[path]; !ok {
			m.Index.RemoveModule(path)
			removed = append(removed, path)
		}
	}
	m.known = seen

	if len(added) == 0 && len(removed) == 0 {
		return
	}
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	for _, l := range m.listeners {
		l(added, removed)
	}
}
