package conflict

import "github.com/modscope/backend/internal/manifest"

// Type classifies a conflict by its effect.
type Type string

const (
	// TypeOverwrite means the winner replaces differing content.
	TypeOverwrite Type = "overwrite"
	// TypeDuplicate means every contributor ships identical content.
	TypeDuplicate Type = "duplicate"
)

// Severity grades how actionable a conflict is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities, most actionable first.
func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// ModFile is one mod's contribution at a conflicting path.
type ModFile struct {
	ModID    string            `json:"modId"`
	ModName  string            `json:"modName"`
	Path     string            `json:"path"`
	Size     int64             `json:"size"`
	Hash     string            `json:"hash,omitempty"`
	FileType manifest.FileType `json:"fileType"`
}

// ModManifest is one mod's file manifest at its load position.
type ModManifest struct {
	ModID     string
	ModName   string
	LoadOrder int
	Manifest  *manifest.Manifest
}

// Conflict is one path contributed by two or more mods.
type Conflict struct {
	Path     string            `json:"path"`
	Type     Type              `json:"type"`
	Severity Severity          `json:"severity"`
	FileType manifest.FileType `json:"fileType"`
	Score    int               `json:"score"`
	// Sources is every contributor in load order; Winner is the last,
	// Losers everyone before it.
	Sources      []ModFile `json:"sources"`
	Winner       *ModFile  `json:"winner"`
	Losers       []ModFile `json:"losers"`
	IsIdentical  bool      `json:"isIdentical"`
	MatchedRules []string  `json:"matchedRules,omitempty"`
	Message      string    `json:"message"`
}

// ModSummary tallies one mod's involvement across all conflicts.
type ModSummary struct {
	ModID          string `json:"modId"`
	ModName        string `json:"modName"`
	TotalConflicts int    `json:"totalConflicts"`
	WinCount       int    `json:"winCount"`
	LoseCount      int    `json:"loseCount"`
	CriticalCount  int    `json:"criticalCount"`
	HighCount      int    `json:"highCount"`
}

// Stats summarizes a conflict analysis.
type Stats struct {
	TotalFiles         int                       `json:"totalFiles"`
	UniqueFiles        int                       `json:"uniqueFiles"`
	TotalConflicts     int                       `json:"totalConflicts"`
	ModsAnalyzed       int                       `json:"modsAnalyzed"`
	ModsWithConflicts  int                       `json:"modsWithConflicts"`
	CriticalCount      int                       `json:"criticalCount"`
	HighCount          int                       `json:"highCount"`
	MediumCount        int                       `json:"mediumCount"`
	LowCount           int                       `json:"lowCount"`
	InfoCount          int                       `json:"infoCount"`
	IdenticalConflicts int                       `json:"identicalConflicts"`
	RuleMatchCount     int                       `json:"ruleMatchCount"`
	TotalScore         int                       `json:"totalScore"`
	MaxScore           int                       `json:"maxScore"`
	AverageScore       float64                   `json:"averageScore"`
	ByFileType         map[manifest.FileType]int `json:"byFileType"`
}

// Result is the complete conflict analysis.
type Result struct {
	Conflicts    []Conflict   `json:"conflicts"`
	ModSummaries []ModSummary `json:"modSummaries"`
	Stats        Stats        `json:"stats"`
	// PathToMods maps each conflicting path to its contributing mod IDs
	// in load order.
	PathToMods map[string][]string `json:"pathToMods"`
}
