package config

import (
	"errors"
	"fmt"
)

// TargetName identifies a saved capture target, e.g. "staging-renderer".
type TargetName string

// Targets is a named collection of capture Targets, saved alongside
// capture defaults so a UI doesn't need to re-enter an address every run.
type Targets struct {
	targets map[TargetName]*Target
}

// Target is one remote process a capture can be pointed at: where to dial
// it and which options to use unless the caller overrides them.
type Target struct {
	Name    TargetName
	Addr    string
	Options CaptureDefaults
}

func NewTargets() *Targets {
	return &Targets{
		targets: make(map[TargetName]*Target),
	}
}

func (tt *Targets) Add(t *Target) error {
	if _, exists := tt.targets[t.Name]; exists {
		return errors.New(fmt.Sprintf(`"%s" already exists`, t.Name))
	}
	tt.targets[t.Name] = t
	return nil
}

func (tt *Targets) Delete(name TargetName) error {
	if _, exists := tt.targets[name]; !exists {
		return errors.New(fmt.Sprintf(`"%s" not found`, name))
	}
	delete(tt.targets, name)
	return nil
}

func (tt *Targets) Get(name TargetName) (*Target, bool) {
	t, ok := tt.targets[name]
	return t, ok
}

func (tt *Targets) Walk(fn func(*Target) error) error {
	for _, t := range tt.targets {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}
