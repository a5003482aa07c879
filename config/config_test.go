package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/wire"
)

func TestLoadMissingConfigUsesDefaults(t *testing.T) {
	c := NewConfig(filepath.Join(t.TempDir(), "cfg"))
	assert.NoError(t, c.Load())
	assert.Equal(t, uint32(1000), c.Defaults.SamplingRate)
	assert.Equal(t, wire.UnwindingFramePointers, c.Defaults.UnwindingMethod)
}

func TestSaveThenLoadRoundTripsDefaultsAndTargets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	c := NewConfig(dir)
	assert.NoError(t, c.Load())

	c.Defaults.SamplingRate = 500
	c.Defaults.TraceGPU = true
	assert.NoError(t, c.Targets.Add(&Target{Name: "staging", Addr: "tcp://10.0.0.1:4044"}))
	assert.NoError(t, c.Save())

	c2 := NewConfig(dir)
	assert.NoError(t, c2.Load())
	assert.Equal(t, uint32(500), c2.Defaults.SamplingRate)
	assert.True(t, c2.Defaults.TraceGPU)

	target, ok := c2.Targets.Get("staging")
	assert.True(t, ok)
	assert.Equal(t, "tcp://10.0.0.1:4044", target.Addr)
}

func TestSaveIfWantOnlySavesWhenRequested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	c := NewConfig(dir)
	assert.NoError(t, c.Load())
	assert.NoError(t, c.SaveIfWant())

	c.WantSave()
	assert.NoError(t, c.SaveIfWant())
}

func TestTargetsAddDuplicateFails(t *testing.T) {
	tt := NewTargets()
	assert.NoError(t, tt.Add(&Target{Name: "a", Addr: "tcp://x"}))
	assert.Error(t, tt.Add(&Target{Name: "a", Addr: "tcp://y"}))
}
