// Package state implements persisted configuration state and the build
// directory lock (§4.9): resolved option values, the probe cache, tracked
// input-file hashes, and the most recent introspection snapshot, all
// written atomically via github.com/google/renameio exactly as
// distr1-distri's internal/build package writes every artifact it produces
// (internal/build/build.go's PkgSource/Package use
// renameio.TempFile/CloseAtomicallyReplace throughout).
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/mbuild/mbs/internal/backend"
	"golang.org/x/xerrors"
)

// InputHash records one tracked input file's content hash (§4.9: "a hash of
// every read input file: project DSL files, cross/native toolchain
// descriptor files, option declarations, configure_file inputs").
type InputHash struct {
	Path   string
	SHA256 string
}

// OptionValue is one persisted option's (name, value, source) triple,
// reloaded via options.Store.Preload on the next configuration run.
type OptionValue struct {
	Name    string
	Current string
	Source  int
}

// CoreData is the full persisted snapshot written atomically at the end of
// a successful `setup`/`configure` run (§4.9).
type CoreData struct {
	CommandLine []string          // the exact -D flags this run was configured with
	Options     []OptionValue
	ProbeCache  map[string]bool
	InputHashes []InputHash
	Snapshot    *backend.Snapshot
}

// Dir is the persisted state directory under one build root.
type Dir struct {
	Path string
}

// Open returns the persisted state directory for buildRoot, creating it if
// necessary.
func Open(buildRoot string) (*Dir, error) {
	p := filepath.Join(buildRoot, "mbs-private")
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, xerrors.Errorf("creating state directory: %w", err)
	}
	return &Dir{Path: p}, nil
}

func (d *Dir) coreDataPath() string { return filepath.Join(d.Path, "coredata.json") }

// Load reads the persisted CoreData, returning (nil, nil) if this is the
// first configuration of this build directory.
func (d *Dir) Load() (*CoreData, error) {
	b, err := os.ReadFile(d.coreDataPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("reading persisted state: %w", err)
	}
	var cd CoreData
	if err := json.Unmarshal(b, &cd); err != nil {
		return nil, xerrors.Errorf("parsing persisted state: %w", err)
	}
	return &cd, nil
}

// Save persists cd atomically: a crash or interruption mid-write leaves the
// previous coredata.json intact rather than a half-written file (§5
// "cancellation... no partial persisted state").
func (d *Dir) Save(cd *CoreData) error {
	b, err := json.MarshalIndent(cd, "", "  ")
	if err != nil {
		return xerrors.Errorf("encoding persisted state: %w", err)
	}
	f, err := renameio.TempFile("", d.coreDataPath())
	if err != nil {
		return xerrors.Errorf("opening temp file for persisted state: %w", err)
	}
	defer f.Cleanup()
	if _, err := f.Write(b); err != nil {
		return xerrors.Errorf("writing persisted state: %w", err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("committing persisted state: %w", err)
	}
	return nil
}

// WriteSnapshot atomically writes snap as the introspection JSON document
// at path (§4.7 "emit an introspection snapshot"), independent of the full
// CoreData persistence so `mbs introspect` can read it without touching the
// option/probe cache.
func WriteSnapshot(path string, snap *backend.Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return xerrors.Errorf("encoding introspection snapshot: %w", err)
	}
	f, err := renameio.TempFile("", path)
	if err != nil {
		return xerrors.Errorf("opening temp file for introspection snapshot: %w", err)
	}
	defer f.Cleanup()
	if _, err := f.Write(b); err != nil {
		return xerrors.Errorf("writing introspection snapshot: %w", err)
	}
	return f.CloseAtomicallyReplace()
}

// HashFile computes the tracked-input-file hash for path (§4.9).
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", xerrors.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", xerrors.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFiles computes InputHash entries for every path, in the given order
// (deterministic: caller controls ordering, §4.7's "map iteration in
// insertion order" discipline extended to tracked-input listing).
func HashFiles(paths []string) ([]InputHash, error) {
	out := make([]InputHash, len(paths))
	for i, p := range paths {
		sum, err := HashFile(p)
		if err != nil {
			return nil, err
		}
		out[i] = InputHash{Path: p, SHA256: sum}
	}
	return out, nil
}

// NeedsReconfigure reports whether a fresh interpreter run is required
// (§4.9): any tracked input file's hash changed since the last
// configuration, or the command-line options differ.
func NeedsReconfigure(prev *CoreData, currentHashes []InputHash, currentCommandLine []string) bool {
	if prev == nil {
		return true // first configuration
	}
	if !sameCommandLine(prev.CommandLine, currentCommandLine) {
		return true
	}
	prevByPath := make(map[string]string, len(prev.InputHashes))
	for _, ih := range prev.InputHashes {
		prevByPath[ih.Path] = ih.SHA256
	}
	if len(prevByPath) != len(currentHashes) {
		return true
	}
	for _, ih := range currentHashes {
		if prevByPath[ih.Path] != ih.SHA256 {
			return true
		}
	}
	return false
}

func sameCommandLine(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
