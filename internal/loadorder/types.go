package loadorder

import "github.com/modscope/backend/internal/plugin"

// IssueType identifies a kind of load order problem.
type IssueType string

const (
	// IssueMissingMaster flags a plugin whose master is absent.
	IssueMissingMaster IssueType = "missing_master"
	// IssueWrongOrder flags a plugin loading before one of its masters.
	IssueWrongOrder IssueType = "wrong_order"
	// IssueDuplicatePlugin flags a filename appearing more than once.
	IssueDuplicatePlugin IssueType = "duplicate_plugin"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one detected load order problem.
type Issue struct {
	Type          IssueType `json:"type"`
	Severity      Severity  `json:"severity"`
	Plugin        string    `json:"plugin"`
	RelatedPlugin string    `json:"relatedPlugin,omitempty"`
	Message       string    `json:"message"`
	Index         int       `json:"index"`
}

// Entry is one plugin to analyze, in load order. Header is optional;
// without it only the filename informs the analysis.
type Entry struct {
	Filename string
	Header   *plugin.Header
}

// PluginInfo is one analyzed plugin with its position and issue tally.
type PluginInfo struct {
	Filename    string      `json:"filename"`
	Type        plugin.Type `json:"type"`
	IsMaster    bool        `json:"isMaster"`
	IsLight     bool        `json:"isLight"`
	Author      string      `json:"author,omitempty"`
	Description string      `json:"description,omitempty"`
	Masters     []string    `json:"masters"`
	Index       int         `json:"index"`
	HasIssues   bool        `json:"hasIssues"`
	IssueCount  int         `json:"issueCount"`
}

// Stats summarizes a load order analysis.
type Stats struct {
	TotalPlugins      int `json:"totalPlugins"`
	ESMCount          int `json:"esmCount"`
	ESPCount          int `json:"espCount"`
	ESLCount          int `json:"eslCount"`
	TotalIssues       int `json:"totalIssues"`
	ErrorCount        int `json:"errorCount"`
	WarningCount      int `json:"warningCount"`
	PluginsWithIssues int `json:"pluginsWithIssues"`
	MissingMasters    int `json:"missingMasters"`
	WrongOrderCount   int `json:"wrongOrderCount"`
	DuplicateCount    int `json:"duplicateCount"`
}

// Result is the complete load order analysis.
type Result struct {
	Plugins []PluginInfo `json:"plugins"`
	Issues  []Issue      `json:"issues"`
	Stats   Stats        `json:"stats"`
	// DependencyGraph maps each plugin with masters to its master list.
	DependencyGraph map[string][]string `json:"dependencyGraph"`
}
