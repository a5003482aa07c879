// Package preset loads and saves symtab.Preset selections as JSON files on
// disk, the way config.Config persists targets, so a UI can re-select the
// same functions across capture sessions without re-picking them by hand.
package preset

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/orbitcore/profiler/symtab"
)

// Load reads a preset from path. A missing file is not an error: it
// returns an empty Preset, mirroring config.Config.Load's treatment of a
// missing config.json.
func Load(path string) (symtab.Preset, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return symtab.Preset{Modules: make(map[string]symtab.PresetModule)}, nil
	}
	js, err := ioutil.ReadFile(path)
	if err != nil {
		return symtab.Preset{}, err
	}
	var p symtab.Preset
	if err := json.Unmarshal(js, &p); err != nil {
		return symtab.Preset{}, err
	}
	if p.Modules == nil {
		p.Modules = make(map[string]symtab.PresetModule)
	}
	return p, nil
}

// Save writes preset to path as indented JSON.
func Save(path string, preset symtab.Preset) error {
	js, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, js, os.ModePerm^0111)
}

// Builder accumulates selected functions across one or more modules before
// they're saved as a Preset, the way a UI collects checkbox state.
type Builder struct {
	preset symtab.Preset
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{preset: symtab.Preset{Modules: make(map[string]symtab.PresetModule)}}
}

// Select records fn (identified by its pretty-name hash) as selected
// within modulePath.
func (b *Builder) Select(modulePath string, fn *symtab.Function) {
	entry := b.preset.Modules[modulePath]
	entry.FunctionHashes = append(entry.FunctionHashes, fn.Hash())
	b.preset.Modules[modulePath] = entry
}

// Preset returns the accumulated selection.
func (b *Builder) Preset() symtab.Preset {
	return b.preset
}

// ApplyTo applies preset to every module in modules that has an entry,
// marking their selected functions.
func ApplyTo(preset symtab.Preset, modules []*symtab.Module) {
	for _, m := range modules {
		m.ApplyPreset(preset)
	}
}
