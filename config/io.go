// Package config persists capture defaults and known targets as JSON on
// disk, the way a UI would save them between runs: a sampling rate, an
// unwinding method, whether to trace GPU jobs, and the listen addresses
// the wire transport and REST API bind to.
package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path"

	"github.com/orbitcore/profiler/info"
)

// Directory Layout
//   $dir/config.json - capture defaults, known targets, server addresses

type Config struct {
	dir      string
	Defaults CaptureDefaults
	Targets  Targets
	Servers  Servers
	wantSave bool
}

// NewConfig returns a Config rooted at dir, defaulting to
// info.DefaultConfigDir when dir is empty.
func NewConfig(dir string) *Config {
	if dir == "" {
		dir = info.DefaultConfigDir
	}
	return &Config{
		dir:     dir,
		Targets: *NewTargets(),
	}
}

type onDiskConfig struct {
	Defaults CaptureDefaults
	Targets  map[TargetName]*Target
	Servers  Servers
}

func (c *Config) Load() error {
	if _, err := os.Stat(c.configPath()); os.IsNotExist(err) {
		c.Defaults = DefaultCaptureDefaults()
		return nil
	}
	js, err := ioutil.ReadFile(c.configPath())
	if err != nil {
		return err
	}
	var onDisk onDiskConfig
	if err := json.Unmarshal(js, &onDisk); err != nil {
		return err
	}
	c.Defaults = onDisk.Defaults
	c.Servers = onDisk.Servers
	if onDisk.Targets != nil {
		c.Targets.targets = onDisk.Targets
	}
	return nil
}

func (c *Config) WantSave() {
	c.wantSave = true
}

func (c *Config) Save() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.dir, os.ModePerm); err != nil {
			return err
		}
	}

	js, err := json.MarshalIndent(onDiskConfig{
		Defaults: c.Defaults,
		Targets:  c.Targets.targets,
		Servers:  c.Servers,
	}, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(c.configPath(), js, os.ModePerm^0111)
}

func (c *Config) SaveIfWant() error {
	if c.wantSave {
		return c.Save()
	}
	return nil
}

func (c Config) configPath() string {
	return path.Join(c.dir, "config.json")
}
