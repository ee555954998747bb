package dist

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

// CollectEntries stages the project's tracked input files, the
// introspection snapshot, and the install manifest as archive entries
// (§4.10). Paths are read relative to srcRoot and stored in the archive
// under the same relative name; snapshotPath and manifestPath are stored
// under the fixed names "meta/introspect.json" and "meta/install.manifest".
func CollectEntries(srcRoot string, dslFiles []string, snapshotPath, manifestPath string) ([]Entry, error) {
	var entries []Entry
	for _, rel := range dslFiles {
		data, err := os.ReadFile(filepath.Join(srcRoot, rel))
		if err != nil {
			return nil, xerrors.Errorf("staging %s: %w", rel, err)
		}
		entries = append(entries, Entry{Name: rel, Data: data, Mode: 0o644})
	}
	if snapshotPath != "" {
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			return nil, xerrors.Errorf("staging introspection snapshot: %w", err)
		}
		entries = append(entries, Entry{Name: "meta/introspect.json", Data: data, Mode: 0o644})
	}
	if manifestPath != "" {
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			return nil, xerrors.Errorf("staging install manifest: %w", err)
		}
		entries = append(entries, Entry{Name: "meta/install.manifest", Data: data, Mode: 0o644})
	}
	return entries, nil
}
