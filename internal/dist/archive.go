// Package dist implements the `dist <builddir>` release archive builder
// (§4.10): a cpio archive of the project's tracked input files, the
// introspection snapshot, and the install manifest, gzip-compressed and
// written atomically. It never invokes squashfs image construction or FUSE
// mounting — those belong to the downstream installer runtime (§1
// Non-goals) — this package only produces the one release artifact the
// `dist` verb is responsible for.
package dist

import (
	"io"
	"sort"

	"github.com/cavaliercoder/go-cpio"
	"github.com/google/renameio"
	"github.com/klauspost/pgzip"
	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"
)

// Entry is one file staged into the release archive.
type Entry struct {
	Name string // archive-relative path
	Data []byte
	Mode uint32
}

// BuildArchive writes entries as a cpio archive into an in-memory buffer
// (github.com/orcaman/writerseeker.WriterSeeker, so the archive's total
// size is known to the cpio trailer before anything is flushed to disk —
// distr1-distri's own cpio writer (cmd/distri/initrd.go) streams straight
// to a bytes.Buffer for the same reason, and the pack's wider comfort with
// an io.Writer-backed staging buffer ahead of compression is what
// writerseeker generalizes here), compresses that buffer with
// github.com/klauspost/pgzip (distri's own choice for squashfs image
// compression, reused here for archive compression), and commits the
// result atomically via github.com/google/renameio.
func BuildArchive(path string, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var ws writerseeker.WriterSeeker
	cw := cpio.NewWriter(&ws)
	for _, e := range sorted {
		if err := cw.WriteHeader(&cpio.Header{
			Name: e.Name,
			Mode: cpio.FileMode(e.Mode),
			Size: int64(len(e.Data)),
		}); err != nil {
			return xerrors.Errorf("writing cpio header for %s: %w", e.Name, err)
		}
		if _, err := cw.Write(e.Data); err != nil {
			return xerrors.Errorf("writing cpio body for %s: %w", e.Name, err)
		}
	}
	if err := cw.Close(); err != nil {
		return xerrors.Errorf("closing cpio archive: %w", err)
	}

	f, err := renameio.TempFile("", path)
	if err != nil {
		return xerrors.Errorf("opening temp file for release archive: %w", err)
	}
	defer f.Cleanup()
	zw := pgzip.NewWriter(f)
	if _, err := io.Copy(zw, ws.Reader()); err != nil {
		return xerrors.Errorf("compressing release archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return xerrors.Errorf("flushing compressor: %w", err)
	}
	return f.CloseAtomicallyReplace()
}
