package manifest

// FileType classifies a file by what the game engine does with it.
type FileType string

const (
	FileTypePlugin    FileType = "plugin"
	FileTypeMesh      FileType = "mesh"
	FileTypeTexture   FileType = "texture"
	FileTypeSound     FileType = "sound"
	FileTypeScript    FileType = "script"
	FileTypeInterface FileType = "interface"
	FileTypeSEQ       FileType = "seq"
	FileTypeBSA       FileType = "bsa"
	FileTypeOther     FileType = "other"
)

// FileEntry is a single file inside a mod archive, normalized for
// conflict analysis. Path is the normalized form; OriginalPath preserves
// the archive spelling.
type FileEntry struct {
	Path         string   `json:"path"`
	OriginalPath string   `json:"originalPath"`
	Size         int64    `json:"size"`
	Hash         string   `json:"hash,omitempty"`
	Type         FileType `json:"type"`
	Extension    string   `json:"extension"`
	Directory    string   `json:"directory"`
	Filename     string   `json:"filename"`
}

// Manifest is the full file listing of one mod archive.
type Manifest struct {
	Files     []FileEntry `json:"files"`
	FileCount int         `json:"fileCount"`
	TotalSize int64       `json:"totalSize"`
}
