package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mholt/archiver/v4"
)

// ErrUnsupportedArchive is returned when the content is not a
// recognized archive format.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

// Extractor builds file manifests from mod archives. Entries are read
// in-stream; nothing is written to disk.
type Extractor struct{}

// NewExtractor creates a new manifest extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractManifest lists every regular file in the archive without
// hashing content. Entries carry no hash, so conflict analysis over
// this manifest cannot prove two files identical.
func (e *Extractor) ExtractManifest(ctx context.Context, archivePath string) (*Manifest, error) {
	return e.extract(ctx, archivePath, false)
}

// ExtractManifestWithHashes lists every regular file and computes a
// SHA-256 content hash per file. Slower, but enables byte-identical
// duplicate detection.
func (e *Extractor) ExtractManifestWithHashes(ctx context.Context, archivePath string) (*Manifest, error) {
	return e.extract(ctx, archivePath, true)
}

func (e *Extractor) extract(ctx context.Context, archivePath string, withHashes bool) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	// The filename is withheld from identification so the extension
	// never participates.
	format, _, err := archiver.Identify(ctx, "", f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
	}
	ex, ok := format.(archiver.Extractor)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, format.Extension())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding archive: %w", err)
	}

	m := &Manifest{Files: make([]FileEntry, 0, 64)}

	err = ex.Extract(ctx, f, func(ctx context.Context, af archiver.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if af.IsDir() {
			return nil
		}

		entry := NewFileEntry(af.NameInArchive, af.Size(), "")
		if withHashes {
			rc, err := af.Open()
			if err != nil {
				return fmt.Errorf("opening %s: %w", af.NameInArchive, err)
			}
			hash, err := ComputeContentHash(rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("hashing %s: %w", af.NameInArchive, err)
			}
			entry.Hash = hash
		}

		m.Files = append(m.Files, entry)
		m.TotalSize += entry.Size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading archive entries: %w", err)
	}

	// Entry order differs between archive formats; sort for stable output.
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	m.FileCount = len(m.Files)

	return m, nil
}
