package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mholt/archiver/v4"

	"github.com/modscope/backend/internal/manifest"
)

// ExtractResult is a tree of files extracted beneath OutputDir. Files
// holds slash-separated paths relative to OutputDir, in archive order.
// Callers release the tree with Cleanup.
type ExtractResult struct {
	OutputDir string
	Files     []string
	TotalSize int64
}

// Cleanup removes the extracted tree.
func (r *ExtractResult) Cleanup() error {
	return os.RemoveAll(r.OutputDir)
}

// Extractor extracts mod archives into per-call output directories
// beneath its output root. Archive format is detected by content sniff;
// the extension is informational only. The extractor is re-entrant.
type Extractor struct {
	outputRoot    string
	maxFileBytes  int64 // per extracted file, 0 disables
	maxTotalBytes int64 // per extraction, 0 disables
}

// NewExtractor creates an Extractor writing beneath outputRoot.
func NewExtractor(outputRoot string, maxFileBytes, maxTotalBytes int64) *Extractor {
	return &Extractor{
		outputRoot:    outputRoot,
		maxFileBytes:  maxFileBytes,
		maxTotalBytes: maxTotalBytes,
	}
}

// Extract extracts every regular file in the archive.
func (e *Extractor) Extract(ctx context.Context, archivePath string) (*ExtractResult, error) {
	return e.extract(ctx, archivePath, nil)
}

// ExtractPaths extracts only entries whose normalized path matches one
// of the prefixes. Matching is case-insensitive and accepts both / and \
// separators; a prefix also matches the exact entry.
func (e *Extractor) ExtractPaths(ctx context.Context, archivePath string, prefixes []string) (*ExtractResult, error) {
	return e.extract(ctx, archivePath, prefixes)
}

// ExtractFomod extracts the archive's fomod/ subtree.
func (e *Extractor) ExtractFomod(ctx context.Context, archivePath string) (*ExtractResult, error) {
	return e.extract(ctx, archivePath, []string{"fomod/"})
}

// ListFiles returns the archive-internal paths of every regular file,
// without extracting anything.
func (e *Extractor) ListFiles(ctx context.Context, archivePath string) ([]string, error) {
	ex, f, err := e.open(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	err = ex.Extract(ctx, f, func(ctx context.Context, af archiver.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if af.IsDir() {
			return nil
		}
		files = append(files, af.NameInArchive)
		return nil
	})
	if err != nil {
		return nil, e.wrap(err)
	}
	return files, nil
}

// HasSubtree reports whether any regular file lies under prefix.
func (e *Extractor) HasSubtree(ctx context.Context, archivePath, prefix string) (bool, error) {
	files, err := e.ListFiles(ctx, archivePath)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if matchesPrefix(f, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Cleanup removes an extraction output directory.
func (e *Extractor) Cleanup(outputDir string) error {
	return os.RemoveAll(outputDir)
}

func (e *Extractor) extract(ctx context.Context, archivePath string, prefixes []string) (*ExtractResult, error) {
	ex, f, err := e.open(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	outDir := filepath.Join(e.outputRoot, uuid.NewString())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &ExtractResult{OutputDir: outDir}

	err = ex.Extract(ctx, f, func(ctx context.Context, af archiver.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if af.IsDir() {
			return nil
		}
		if prefixes != nil && !matchesAnyPrefix(af.NameInArchive, prefixes) {
			return nil
		}
		return e.extractEntry(af, outDir, result)
	})
	if err != nil {
		os.RemoveAll(outDir)
		return nil, e.wrap(err)
	}

	return result, nil
}

func (e *Extractor) extractEntry(af archiver.FileInfo, outDir string, result *ExtractResult) error {
	destPath, relPath, err := safeDestination(outDir, af.NameInArchive)
	if err != nil {
		return err
	}

	if e.maxFileBytes > 0 && af.Size() > e.maxFileBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, af.NameInArchive, af.Size())
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", af.NameInArchive, err)
	}

	rc, err := af.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", af.NameInArchive, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	// Cap the copy one byte past the limit so oversized entries with a
	// lying size header are still caught.
	var src io.Reader = rc
	if e.maxFileBytes > 0 {
		src = io.LimitReader(rc, e.maxFileBytes+1)
	}
	written, err := io.Copy(out, src)
	if err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	if e.maxFileBytes > 0 && written > e.maxFileBytes {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, af.NameInArchive, e.maxFileBytes)
	}

	result.TotalSize += written
	if e.maxTotalBytes > 0 && result.TotalSize > e.maxTotalBytes {
		return fmt.Errorf("%w: extraction exceeds %d bytes total", ErrFileTooLarge, e.maxTotalBytes)
	}

	result.Files = append(result.Files, relPath)
	return nil
}

// open opens the archive and sniffs its format from content. The
// filename is withheld from identification so the extension never
// participates.
func (e *Extractor) open(ctx context.Context, archivePath string) (archiver.Extractor, *os.File, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
		}
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}

	format, _, err := archiver.Identify(ctx, "", f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
	}
	ex, ok := format.(archiver.Extractor)
	if !ok {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, format.Extension())
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("rewinding archive: %w", err)
	}
	return ex, f, nil
}

// wrap keeps typed and cancellation errors intact and folds everything
// else into ErrExtractionFailed.
func (e *Extractor) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zip.ErrInsecurePath):
		// archive/zip pre-screens entry names since Go 1.20.
		return fmt.Errorf("%w: %v", ErrPathTraversal, err)
	case errors.Is(err, ErrPathTraversal),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
}

// safeDestination resolves an archive entry name to a destination under
// root, rejecting entries that would escape it.
func safeDestination(root, entryName string) (destPath, relPath string, err error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(entryName, "\\", "/")))
	dest := filepath.Join(root, cleaned)

	rootClean := filepath.Clean(root)
	if dest != rootClean && !strings.HasPrefix(dest, rootClean+string(os.PathSeparator)) {
		return "", "", fmt.Errorf("%w: %s", ErrPathTraversal, entryName)
	}

	rel, err := filepath.Rel(rootClean, dest)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", fmt.Errorf("%w: %s", ErrPathTraversal, entryName)
	}
	return dest, filepath.ToSlash(rel), nil
}

// matchesPrefix reports whether the normalized entry path lies under the
// normalized prefix (or equals it).
func matchesPrefix(entryPath, prefix string) bool {
	p := manifest.NormalizePath(prefix)
	if p == "" {
		return true
	}
	entry := manifest.NormalizePath(entryPath)
	return entry == p || strings.HasPrefix(entry, p+"/")
}

func matchesAnyPrefix(entryPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchesPrefix(entryPath, p) {
			return true
		}
	}
	return false
}
