package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path"
	"strings"
)

// NormalizePath converts an archive-internal path to canonical form:
// forward slashes, lowercase, cleaned, no leading or trailing separator.
// Both "" and "/" normalize to the empty string. The function is
// idempotent; all path equality in the analyzers uses this form.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ToLower(p)
	p = path.Clean(p)
	p = strings.Trim(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// DetermineFileType maps a file extension (with or without the leading
// dot) to its FileType.
func DetermineFileType(extension string) FileType {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	switch ext {
	case "esp", "esm", "esl":
		return FileTypePlugin
	case "nif":
		return FileTypeMesh
	case "dds", "png", "tga", "bmp", "jpg", "jpeg":
		return FileTypeTexture
	case "wav", "xwm", "fuz", "lip":
		return FileTypeSound
	case "pex", "psc":
		return FileTypeScript
	case "swf":
		return FileTypeInterface
	case "seq":
		return FileTypeSEQ
	case "bsa", "ba2":
		return FileTypeBSA
	default:
		return FileTypeOther
	}
}

// ComputePathHash returns the hex SHA-256 of a normalized path. It is a
// stable identifier for deduplication keying.
func ComputePathHash(normalizedPath string) string {
	sum := sha256.Sum256([]byte(normalizedPath))
	return hex.EncodeToString(sum[:])
}

// ComputeContentHash returns the hex SHA-256 of the stream. Used to
// detect byte-identical overwrites.
func ComputeContentHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NewFileEntry builds a FileEntry from an archive path and size. hash
// is the optional SHA-256 content hash; manifests built without
// hashing leave it empty, which keeps identity checks honest.
func NewFileEntry(originalPath string, size int64, hash string) FileEntry {
	normalized := NormalizePath(originalPath)
	ext := strings.ToLower(path.Ext(normalized))
	dir := path.Dir(normalized)
	if dir == "." {
		dir = ""
	}
	return FileEntry{
		Path:         normalized,
		OriginalPath: originalPath,
		Size:         size,
		Hash:         hash,
		Type:         DetermineFileType(ext),
		Extension:    ext,
		Directory:    dir,
		Filename:     path.Base(normalized),
	}
}
