package conflict

import (
	"context"
	"fmt"
	"sort"

	"github.com/modscope/backend/internal/manifest"
)

// Analyzer detects file conflicts between mods.
type Analyzer struct {
	scorer *Scorer
}

// NewAnalyzer creates an analyzer with the built-in scoring rules.
func NewAnalyzer() *Analyzer {
	return &Analyzer{scorer: NewScorer()}
}

// NewAnalyzerWithRules creates an analyzer with a custom rule set.
func NewAnalyzerWithRules(rules []Rule) *Analyzer {
	return &Analyzer{scorer: NewScorerWithRules(rules)}
}

// contributor ties a mod's file to its load position.
type contributor struct {
	file      ModFile
	loadOrder int
}

// Analyze detects conflicts between the given manifests. Mods must be
// in load order: index 0 loads first, later entries overwrite earlier
// ones.
func (a *Analyzer) Analyze(ctx context.Context, mods []ModManifest) (*Result, error) {
	result := &Result{
		Conflicts:    make([]Conflict, 0),
		ModSummaries: make([]ModSummary, 0, len(mods)),
		PathToMods:   make(map[string][]string),
	}

	fileMap := buildFileMap(mods)

	totalFiles := 0
	for _, contributors := range fileMap {
		totalFiles += len(contributors)
	}

	summaries := make(map[string]*ModSummary, len(mods))
	for _, mod := range mods {
		summaries[mod.ModID] = &ModSummary{ModID: mod.ModID, ModName: mod.ModName}
	}

	for path, contributors := range fileMap {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(contributors) < 2 {
			continue
		}

		sort.Slice(contributors, func(i, j int) bool {
			return contributors[i].loadOrder < contributors[j].loadOrder
		})

		conflict := a.buildConflict(path, contributors)
		result.Conflicts = append(result.Conflicts, conflict)

		modIDs := make([]string, len(contributors))
		for i, c := range contributors {
			modIDs[i] = c.file.ModID
		}
		result.PathToMods[path] = modIDs

		tallySummaries(summaries, &conflict)
	}

	sort.Slice(result.Conflicts, func(i, j int) bool {
		ci, cj := &result.Conflicts[i], &result.Conflicts[j]
		if ci.Severity != cj.Severity {
			return severityRank(ci.Severity) < severityRank(cj.Severity)
		}
		if ci.Score != cj.Score {
			return ci.Score > cj.Score
		}
		return ci.Path < cj.Path
	})

	result.Stats = calculateStats(result, len(mods), totalFiles, len(fileMap))

	for _, mod := range mods {
		if summary, ok := summaries[mod.ModID]; ok {
			result.ModSummaries = append(result.ModSummaries, *summary)
		}
	}

	return result, nil
}

func buildFileMap(mods []ModManifest) map[string][]contributor {
	fileMap := make(map[string][]contributor)

	for _, mod := range mods {
		if mod.Manifest == nil {
			continue
		}
		for _, entry := range mod.Manifest.Files {
			fileMap[entry.Path] = append(fileMap[entry.Path], contributor{
				file: ModFile{
					ModID:    mod.ModID,
					ModName:  mod.ModName,
					Path:     entry.Path,
					Size:     entry.Size,
					Hash:     entry.Hash,
					FileType: entry.Type,
				},
				loadOrder: mod.LoadOrder,
			})
		}
	}

	return fileMap
}

// buildConflict assembles one conflict from contributors already
// sorted by load order.
func (a *Analyzer) buildConflict(path string, contributors []contributor) Conflict {
	sources := make([]ModFile, len(contributors))
	for i, c := range contributors {
		sources[i] = c.file
	}

	winner := sources[len(sources)-1]
	losers := sources[:len(sources)-1]

	identical := allIdentical(sources)

	conflictType := TypeOverwrite
	if identical {
		conflictType = TypeDuplicate
	}

	conflict := Conflict{
		Path:        path,
		Type:        conflictType,
		Severity:    determineSeverity(sources[0].FileType, identical),
		FileType:    sources[0].FileType,
		Sources:     sources,
		Winner:      &winner,
		Losers:      losers,
		IsIdentical: identical,
		Message:     conflictMessage(path, &winner, losers, identical),
	}

	conflict.Score, conflict.MatchedRules = a.scorer.Score(&conflict)
	return conflict
}

// allIdentical holds only when every contributor carries a hash and
// all hashes agree. A manifest without hashes never reports Duplicate.
func allIdentical(sources []ModFile) bool {
	first := sources[0].Hash
	if first == "" {
		return false
	}
	for _, s := range sources[1:] {
		if s.Hash == "" || s.Hash != first {
			return false
		}
	}
	return true
}

func determineSeverity(fileType manifest.FileType, identical bool) Severity {
	if identical {
		return SeverityInfo
	}

	switch fileType {
	case manifest.FileTypePlugin:
		return SeverityCritical
	case manifest.FileTypeBSA, manifest.FileTypeScript:
		return SeverityHigh
	case manifest.FileTypeMesh, manifest.FileTypeTexture, manifest.FileTypeInterface:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func conflictMessage(path string, winner *ModFile, losers []ModFile, identical bool) string {
	if identical {
		return fmt.Sprintf("File '%s' is provided by %d mods with identical content", path, len(losers)+1)
	}
	if len(losers) == 1 {
		return fmt.Sprintf("File '%s' from '%s' overwrites '%s'", path, winner.ModName, losers[0].ModName)
	}
	return fmt.Sprintf("File '%s' from '%s' overwrites %d other mods", path, winner.ModName, len(losers))
}

func tallySummaries(summaries map[string]*ModSummary, conflict *Conflict) {
	bump := func(modID string, won bool) {
		summary, ok := summaries[modID]
		if !ok {
			return
		}
		summary.TotalConflicts++
		if won {
			summary.WinCount++
		} else {
			summary.LoseCount++
		}
		switch conflict.Severity {
		case SeverityCritical:
			summary.CriticalCount++
		case SeverityHigh:
			summary.HighCount++
		}
	}

	if conflict.Winner != nil {
		bump(conflict.Winner.ModID, true)
	}
	for _, loser := range conflict.Losers {
		bump(loser.ModID, false)
	}
}

func calculateStats(result *Result, modCount, totalFiles, uniqueFiles int) Stats {
	stats := Stats{
		TotalFiles:     totalFiles,
		UniqueFiles:    uniqueFiles,
		TotalConflicts: len(result.Conflicts),
		ModsAnalyzed:   modCount,
		ByFileType:     make(map[manifest.FileType]int),
	}

	modsWithConflicts := make(map[string]struct{})

	for _, conflict := range result.Conflicts {
		switch conflict.Severity {
		case SeverityCritical:
			stats.CriticalCount++
		case SeverityHigh:
			stats.HighCount++
		case SeverityMedium:
			stats.MediumCount++
		case SeverityLow:
			stats.LowCount++
		case SeverityInfo:
			stats.InfoCount++
		}

		if conflict.IsIdentical {
			stats.IdenticalConflicts++
		}
		if len(conflict.MatchedRules) > 0 {
			stats.RuleMatchCount++
		}

		stats.TotalScore += conflict.Score
		if conflict.Score > stats.MaxScore {
			stats.MaxScore = conflict.Score
		}
		stats.ByFileType[conflict.FileType]++

		for _, source := range conflict.Sources {
			modsWithConflicts[source.ModID] = struct{}{}
		}
	}

	stats.ModsWithConflicts = len(modsWithConflicts)
	if len(result.Conflicts) > 0 {
		stats.AverageScore = float64(stats.TotalScore) / float64(len(result.Conflicts))
	}

	return stats
}
