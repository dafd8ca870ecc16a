package loadorder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modscope/backend/internal/plugin"
)

// Analyze checks an ordered plugin list (index 0 loads first) for
// missing masters, wrong ordering and duplicates. Master matching is
// case-insensitive; SKYRIM.ESM satisfies a dependency on Skyrim.esm.
func Analyze(ctx context.Context, entries []Entry) (*Result, error) {
	result := &Result{
		Plugins:         make([]PluginInfo, 0, len(entries)),
		Issues:          make([]Issue, 0),
		DependencyGraph: make(map[string][]string),
	}

	// First occurrence wins the index so masters resolve to the copy
	// that actually loads.
	index := make(map[string]int, len(entries))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info := PluginInfo{
			Filename: entry.Filename,
			Index:    i,
			Masters:  []string{},
		}

		if header := entry.Header; header != nil {
			info.Type = header.Type
			info.IsMaster = header.IsMaster
			info.IsLight = header.IsLight
			info.Author = header.Author
			info.Description = header.Description
			for _, master := range header.Masters {
				info.Masters = append(info.Masters, master.Name)
			}
		} else {
			info.Type = typeFromFilename(entry.Filename)
		}

		key := strings.ToLower(entry.Filename)
		if first, seen := index[key]; seen {
			result.Issues = append(result.Issues, Issue{
				Type:          IssueDuplicatePlugin,
				Severity:      SeverityError,
				Plugin:        entry.Filename,
				RelatedPlugin: entries[first].Filename,
				Message:       fmt.Sprintf("Plugin %s appears more than once in the load order", entry.Filename),
				Index:         i,
			})
			info.HasIssues = true
			info.IssueCount++
		} else {
			index[key] = i
		}

		if len(info.Masters) > 0 {
			result.DependencyGraph[entry.Filename] = info.Masters
		}
		result.Plugins = append(result.Plugins, info)
	}

	for i := range result.Plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info := &result.Plugins[i]
		for _, issue := range masterIssues(info, index) {
			result.Issues = append(result.Issues, issue)
			info.HasIssues = true
			info.IssueCount++
		}
	}

	result.Stats = calculateStats(result)
	return result, nil
}

// AnalyzeHeaders analyzes pre-parsed plugin headers in order.
func AnalyzeHeaders(ctx context.Context, headers []*plugin.Header) (*Result, error) {
	entries := make([]Entry, len(headers))
	for i, header := range headers {
		entries[i] = Entry{Filename: header.Filename, Header: header}
	}
	return Analyze(ctx, entries)
}

func masterIssues(info *PluginInfo, index map[string]int) []Issue {
	var issues []Issue

	for _, master := range info.Masters {
		masterIdx, present := index[strings.ToLower(master)]
		switch {
		case !present:
			issues = append(issues, Issue{
				Type:          IssueMissingMaster,
				Severity:      SeverityError,
				Plugin:        info.Filename,
				RelatedPlugin: master,
				Message:       fmt.Sprintf("Missing required master: %s", master),
				Index:         info.Index,
			})
		case masterIdx > info.Index:
			issues = append(issues, Issue{
				Type:          IssueWrongOrder,
				Severity:      SeverityError,
				Plugin:        info.Filename,
				RelatedPlugin: master,
				Message:       fmt.Sprintf("Master %s loads after this plugin", master),
				Index:         info.Index,
			})
		}
	}

	return issues
}

func calculateStats(result *Result) Stats {
	stats := Stats{
		TotalPlugins: len(result.Plugins),
		TotalIssues:  len(result.Issues),
	}

	for _, p := range result.Plugins {
		switch p.Type {
		case plugin.TypeESM:
			stats.ESMCount++
		case plugin.TypeESP:
			stats.ESPCount++
		case plugin.TypeESL:
			stats.ESLCount++
		}
		if p.HasIssues {
			stats.PluginsWithIssues++
		}
	}

	for _, issue := range result.Issues {
		switch issue.Severity {
		case SeverityError:
			stats.ErrorCount++
		case SeverityWarning:
			stats.WarningCount++
		}

		switch issue.Type {
		case IssueMissingMaster:
			stats.MissingMasters++
		case IssueWrongOrder:
			stats.WrongOrderCount++
		case IssueDuplicatePlugin:
			stats.DuplicateCount++
		}
	}

	return stats
}

func typeFromFilename(filename string) plugin.Type {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".esm":
		return plugin.TypeESM
	case ".esl":
		return plugin.TypeESL
	default:
		return plugin.TypeESP
	}
}

// IsPluginFile reports whether filename has a plugin extension.
func IsPluginFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".esp", ".esm", ".esl":
		return true
	}
	return false
}
