package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mbuild/mbs/internal/backend"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cd := &CoreData{
		CommandLine: []string{"-Dbuildtype=release"},
		Options:     []OptionValue{{Name: "buildtype", Current: "release", Source: 2}},
		ProbeCache:  map[string]bool{"gcc:int main(){}": true},
		InputHashes: []InputHash{{Path: "project.mbs", SHA256: "abc123"}},
		Snapshot:    &backend.Snapshot{ProjectName: "demo"},
	}
	if err := d.Save(cd); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Snapshot == nil || got.Snapshot.ProjectName != "demo" {
		t.Fatalf("got = %+v", got)
	}
	if len(got.InputHashes) != 1 || got.InputHashes[0].SHA256 != "abc123" {
		t.Fatalf("InputHashes = %+v", got.InputHashes)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a fresh build directory, got %+v", got)
	}
}

func TestNeedsReconfigure(t *testing.T) {
	prev := &CoreData{
		CommandLine: []string{"-Dbuildtype=debug"},
		InputHashes: []InputHash{{Path: "project.mbs", SHA256: "aaa"}},
	}
	if NeedsReconfigure(nil, prev.InputHashes, prev.CommandLine) != true {
		t.Fatal("expected true for a nil prev (first configuration)")
	}
	if NeedsReconfigure(prev, prev.InputHashes, prev.CommandLine) != false {
		t.Fatal("expected false when nothing changed")
	}
	changedHash := []InputHash{{Path: "project.mbs", SHA256: "bbb"}}
	if !NeedsReconfigure(prev, changedHash, prev.CommandLine) {
		t.Fatal("expected true when an input file hash changed")
	}
	if !NeedsReconfigure(prev, prev.InputHashes, []string{"-Dbuildtype=release"}) {
		t.Fatal("expected true when the command line changed")
	}
}

func TestHashFileAndHashFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sum1, err := HashFile(p)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if err := os.WriteFile(p, []byte("hello!"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sum2, err := HashFile(p)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if sum1 == sum2 {
		t.Fatal("expected different hashes for different content")
	}
	hashes, err := HashFiles([]string{p})
	if err != nil {
		t.Fatalf("HashFiles: %v", err)
	}
	if len(hashes) != 1 || hashes[0].SHA256 != sum2 {
		t.Fatalf("hashes = %+v", hashes)
	}
}

func TestLockExcludesConcurrentAcquire(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	unlock, err := d.Lock()
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	d2, err := Open(dir)
	if err != nil {
		t.Fatalf("Open (second): %v", err)
	}
	if _, err := d2.Lock(); err == nil {
		t.Fatal("expected second Lock on the same build directory to fail while the first is held")
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	unlock2, err := d2.Lock()
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
