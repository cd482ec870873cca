// Package config handles calyx.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file a Calyx runtime looks for.
const FileName = "calyx.toml"

// Config is the runtime configuration.
type Config struct {
	Heap      Heap      `toml:"heap"`
	Hashtable Hashtable `toml:"hashtable"`
	Port      Port      `toml:"port"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the calyx.toml file (set at load time).
	Dir string `toml:"-"`
}

// Heap configures the cell arena.
type Heap struct {
	InitialCells int `toml:"initial-cells"`
}

// Hashtable configures container defaults.
type Hashtable struct {
	DefaultBuckets int `toml:"default-buckets"`
}

// Port configures stream behavior.
type Port struct {
	TabWidth int `toml:"tab-width"`
	// WriteMarker emits the UTF-8 byte-order marker at the start of
	// freshly written files, for platforms whose tools expect it.
	WriteMarker bool `toml:"write-marker"`
}

// Log configures logging verbosity (commonlog scale: 0 quiet, higher is
// chattier).
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Heap:      Heap{InitialCells: 4096},
		Hashtable: Hashtable{DefaultBuckets: 7},
		Port:      Port{TabWidth: 8},
	}
}

// Load parses a calyx.toml file from the given directory, filling in
// defaults for anything unset.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if c.Heap.InitialCells <= 0 {
		c.Heap.InitialCells = 4096
	}
	if c.Hashtable.DefaultBuckets <= 0 {
		c.Hashtable.DefaultBuckets = 7
	}
	if c.Port.TabWidth <= 0 {
		c.Port.TabWidth = 8
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find a calyx.toml file, then loads
// and returns the configuration. Returns nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}
