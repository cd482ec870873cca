package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Heap.InitialCells != 4096 {
		t.Errorf("InitialCells = %d, want 4096", c.Heap.InitialCells)
	}
	if c.Hashtable.DefaultBuckets != 7 {
		t.Errorf("DefaultBuckets = %d, want 7", c.Hashtable.DefaultBuckets)
	}
	if c.Port.TabWidth != 8 {
		t.Errorf("TabWidth = %d, want 8", c.Port.TabWidth)
	}
	if c.Port.WriteMarker {
		t.Error("WriteMarker should default to false")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[heap]
initial-cells = 1024

[hashtable]
default-buckets = 31

[port]
tab-width = 4
write-marker = true

[log]
verbosity = 2
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Heap.InitialCells != 1024 {
		t.Errorf("InitialCells = %d, want 1024", c.Heap.InitialCells)
	}
	if c.Hashtable.DefaultBuckets != 31 {
		t.Errorf("DefaultBuckets = %d, want 31", c.Hashtable.DefaultBuckets)
	}
	if c.Port.TabWidth != 4 {
		t.Errorf("TabWidth = %d, want 4", c.Port.TabWidth)
	}
	if !c.Port.WriteMarker {
		t.Error("WriteMarker not loaded")
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", c.Log.Verbosity)
	}
	if c.Dir == "" {
		t.Error("Dir not recorded")
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[port]\ntab-width = 2\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port.TabWidth != 2 {
		t.Errorf("TabWidth = %d, want 2", c.Port.TabWidth)
	}
	if c.Heap.InitialCells != 4096 {
		t.Error("Unset sections should keep defaults")
	}
}

func TestLoadBadValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[heap]\ninitial-cells = -5\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Heap.InitialCells != 4096 {
		t.Errorf("Non-positive cell count should fall back, got %d", c.Heap.InitialCells)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Loading a directory without calyx.toml should fail")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "not toml = = =")
	if _, err := Load(dir); err == nil {
		t.Error("Malformed TOML should fail")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[hashtable]\ndefault-buckets = 13\n")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c == nil {
		t.Fatal("Config not found from a nested directory")
	}
	if c.Hashtable.DefaultBuckets != 13 {
		t.Errorf("DefaultBuckets = %d, want 13", c.Hashtable.DefaultBuckets)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	// A fresh temp dir has no calyx.toml anywhere up to the root
	// (assuming the test machine does not keep one there).
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c != nil {
		t.Skip("Found a calyx.toml above the temp dir; environment-dependent")
	}
}
