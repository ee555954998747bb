package dist

import (
	"path/filepath"

	"github.com/mbuild/mbs/internal/state"
	"golang.org/x/xerrors"
)

// BuildRelease assembles and writes the release archive for a configured
// build directory (`mbs dist`, §4.10): the persisted CoreData must already
// exist (the project has been configured at least once), since the
// archive's manifest and snapshot come from the last successful
// configuration rather than from a fresh interpreter run.
func BuildRelease(srcRoot, buildRoot, outputPath string, dslFiles []string) error {
	d, err := state.Open(buildRoot)
	if err != nil {
		return xerrors.Errorf("dist: %w", err)
	}
	cd, err := d.Load()
	if err != nil {
		return xerrors.Errorf("dist: %w", err)
	}
	if cd == nil {
		return xerrors.New("dist: build directory has not been configured yet; run setup first")
	}

	snapshotPath := filepath.Join(buildRoot, "mbs-info", "introspect.json")
	if err := state.WriteSnapshot(snapshotPath, cd.Snapshot); err != nil {
		return xerrors.Errorf("dist: %w", err)
	}
	manifestPath := filepath.Join(buildRoot, "install.manifest")

	entries, err := CollectEntries(srcRoot, dslFiles, snapshotPath, manifestPath)
	if err != nil {
		return xerrors.Errorf("dist: %w", err)
	}
	if err := BuildArchive(outputPath, entries); err != nil {
		return xerrors.Errorf("dist: %w", err)
	}
	return nil
}
