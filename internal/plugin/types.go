package plugin

// Type classifies a plugin by its role in the load order.
type Type string

const (
	// TypeESP is a regular plugin.
	TypeESP Type = "ESP"
	// TypeESM is a master file other plugins may depend on.
	TypeESM Type = "ESM"
	// TypeESL is a light plugin outside the 254-slot limit.
	TypeESL Type = "ESL"
)

// TES4 record flag bits.
const (
	flagMaster    = 0x00000001
	flagLocalized = 0x00000080
	flagLight     = 0x00000200
)

// Master is one declared dependency of a plugin. Size is the master's
// file size as recorded by the plugin author, zero when absent.
type Master struct {
	Name string `json:"name"`
	Size uint64 `json:"size,omitempty"`
}

// Header is the parsed TES4 record of a plugin file.
type Header struct {
	Filename    string   `json:"filename"`
	Type        Type     `json:"type"`
	Version     float32  `json:"version"`
	NumRecords  uint32   `json:"numRecords"`
	FormVersion uint16   `json:"formVersion"`
	FormID      uint32   `json:"formId"`
	Timestamp   uint32   `json:"timestamp"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Masters     []Master `json:"masters,omitempty"`
	IsMaster    bool     `json:"isMaster"`
	IsLight     bool     `json:"isLight"`
	IsLocalized bool     `json:"isLocalized"`
}
