package conflict

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/modscope/backend/internal/manifest"
)

const (
	maxScore          = 100
	identicalDiscount = 80
	extraModBonus     = 5
	regexCacheSize    = 64
)

// Scorer assigns each conflict an actionability score in [0, 100].
type Scorer struct {
	rules   []Rule
	regexes *lru.Cache[string, *regexp.Regexp]
}

// NewScorer creates a scorer with the built-in rule set.
func NewScorer() *Scorer {
	return NewScorerWithRules(DefaultRules())
}

// NewScorerWithRules creates a scorer with a custom rule set.
func NewScorerWithRules(rules []Rule) *Scorer {
	regexes, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	return &Scorer{rules: rules, regexes: regexes}
}

// Score combines the type baseline, the identical discount, a bonus
// per additional contributor and the matched rule bonuses, clamped to
// [0, 100]. Returns the score and the IDs of the matched rules.
func (s *Scorer) Score(conflict *Conflict) (int, []string) {
	score := typeBaseline(conflict.FileType)

	if conflict.IsIdentical {
		score -= identicalDiscount
		if score < 0 {
			score = 0
		}
	}

	if extra := len(conflict.Sources) - 2; extra > 0 {
		score += extraModBonus * extra
	}

	var matched []string
	for i := range s.rules {
		rule := &s.rules[i]
		if s.ruleMatches(rule, conflict) {
			score += rule.Bonus
			matched = append(matched, rule.ID)
		}
	}

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}
	return score, matched
}

func typeBaseline(fileType manifest.FileType) int {
	switch fileType {
	case manifest.FileTypePlugin:
		return 90
	case manifest.FileTypeBSA:
		return 75
	case manifest.FileTypeScript:
		return 70
	case manifest.FileTypeInterface:
		return 55
	case manifest.FileTypeMesh:
		return 50
	case manifest.FileTypeTexture:
		return 45
	case manifest.FileTypeSEQ:
		return 30
	case manifest.FileTypeSound:
		return 25
	default:
		return 20
	}
}

func (s *Scorer) ruleMatches(rule *Rule, conflict *Conflict) bool {
	if rule.FileType != "" && rule.FileType != conflict.FileType {
		return false
	}
	if !s.matchPath(rule, conflict.Path) {
		return false
	}
	if len(rule.ModPatterns) > 0 && !bindModPatterns(rule.ModPatterns, conflict.Sources) {
		return false
	}
	return true
}

func (s *Scorer) matchPath(rule *Rule, path string) bool {
	pattern := strings.ToLower(rule.PathPattern)

	switch rule.Match {
	case MatchExact:
		return path == pattern
	case MatchPrefix:
		return strings.HasPrefix(path, pattern)
	case MatchSuffix:
		return strings.HasSuffix(path, pattern)
	case MatchContains:
		return strings.Contains(path, pattern)
	case MatchRegex:
		re := s.compile(rule.PathPattern)
		return re != nil && re.MatchString(path)
	}
	return false
}

// compile returns the cached compiled pattern, or nil when the pattern
// is invalid. An invalid pattern simply never matches.
func (s *Scorer) compile(pattern string) *regexp.Regexp {
	if re, ok := s.regexes.Get(pattern); ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	s.regexes.Add(pattern, re)
	return re
}

// bindModPatterns reports whether every pattern can be bound to a
// distinct contributing mod. Small inputs; plain backtracking.
func bindModPatterns(patterns []string, sources []ModFile) bool {
	used := make([]bool, len(sources))
	return bindNext(patterns, sources, used, 0)
}

func bindNext(patterns []string, sources []ModFile, used []bool, i int) bool {
	if i == len(patterns) {
		return true
	}
	for j := range sources {
		if used[j] || !modMatches(patterns[i], &sources[j]) {
			continue
		}
		used[j] = true
		if bindNext(patterns, sources, used, i+1) {
			return true
		}
		used[j] = false
	}
	return false
}

func modMatches(pattern string, mod *ModFile) bool {
	pattern = strings.ToLower(pattern)
	return strings.Contains(strings.ToLower(mod.ModID), pattern) ||
		strings.Contains(strings.ToLower(mod.ModName), pattern)
}
