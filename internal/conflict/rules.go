package conflict

import "github.com/modscope/backend/internal/manifest"

// MatchType selects how a rule's path pattern is applied.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchPrefix   MatchType = "prefix"
	MatchSuffix   MatchType = "suffix"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// Rule is one incompatibility heuristic. A rule matches a conflict
// when every configured filter matches; its bonus is then added to the
// conflict's score.
type Rule struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`

	// PathPattern is applied to the conflict's normalized path.
	PathPattern string    `json:"pathPattern"`
	Match       MatchType `json:"match"`

	// ModPatterns, when present, must each bind to a distinct
	// contributing mod (matched against mod ID or name).
	ModPatterns []string `json:"modPatterns,omitempty"`

	// FileType restricts the rule to one file type when set.
	FileType manifest.FileType `json:"fileType,omitempty"`

	Bonus int `json:"bonus"`
}

// DefaultRules is the built-in rule set covering the overwrite
// locations that most often break a collection.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "skyui-scripts",
			Description: "SkyUI script overwrites break MCM menus",
			PathPattern: "scripts/skyui",
			Match:       MatchPrefix,
			Bonus:       15,
		},
		{
			ID:          "behavior-files",
			Description: "Character behavior overwrites conflict with animation frameworks",
			PathPattern: "meshes/actors/character/behaviors",
			Match:       MatchPrefix,
			Bonus:       25,
		},
		{
			ID:          "havok-behavior",
			Description: "Havok behavior graphs must be patched, not overwritten",
			PathPattern: ".hkx",
			Match:       MatchSuffix,
			Bonus:       20,
		},
		{
			ID:          "skeleton-mesh",
			Description: "Skeleton overwrites undo XPMSSE and similar frameworks",
			PathPattern: "skeleton.nif",
			Match:       MatchSuffix,
			FileType:    manifest.FileTypeMesh,
			Bonus:       20,
		},
	}
}
