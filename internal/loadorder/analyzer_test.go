package loadorder

import (
	"context"
	"testing"

	"github.com/modscope/backend/internal/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(filename string, typ plugin.Type, masters ...string) *plugin.Header {
	h := &plugin.Header{
		Filename: filename,
		Type:     typ,
		IsMaster: typ == plugin.TypeESM,
		IsLight:  typ == plugin.TypeESL,
	}
	for _, m := range masters {
		h.Masters = append(h.Masters, plugin.Master{Name: m})
	}
	return h
}

func TestAnalyze_CleanLoadOrder(t *testing.T) {
	headers := []*plugin.Header{
		header("Skyrim.esm", plugin.TypeESM),
		header("Update.esm", plugin.TypeESM, "Skyrim.esm"),
		header("MyMod.esp", plugin.TypeESP, "Skyrim.esm", "Update.esm"),
	}

	result, err := AnalyzeHeaders(context.Background(), headers)
	require.NoError(t, err)

	assert.Empty(t, result.Issues)
	assert.Equal(t, 3, result.Stats.TotalPlugins)
	assert.Equal(t, 2, result.Stats.ESMCount)
	assert.Equal(t, 1, result.Stats.ESPCount)
	assert.Zero(t, result.Stats.TotalIssues)

	require.Contains(t, result.DependencyGraph, "MyMod.esp")
	assert.Equal(t, []string{"Skyrim.esm", "Update.esm"}, result.DependencyGraph["MyMod.esp"])
	assert.NotContains(t, result.DependencyGraph, "Skyrim.esm")
}

func TestAnalyze_MissingMaster(t *testing.T) {
	headers := []*plugin.Header{
		header("Skyrim.esm", plugin.TypeESM),
		header("MyMod.esp", plugin.TypeESP, "Skyrim.esm", "Dawnguard.esm"),
	}

	result, err := AnalyzeHeaders(context.Background(), headers)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, IssueMissingMaster, issue.Type)
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Equal(t, "MyMod.esp", issue.Plugin)
	assert.Equal(t, "Dawnguard.esm", issue.RelatedPlugin)
	assert.Equal(t, 1, issue.Index)

	assert.Equal(t, 1, result.Stats.MissingMasters)
	assert.Equal(t, 1, result.Stats.ErrorCount)
	assert.Equal(t, 1, result.Stats.PluginsWithIssues)
	assert.True(t, result.Plugins[1].HasIssues)
	assert.Equal(t, 1, result.Plugins[1].IssueCount)
}

func TestAnalyze_WrongOrder(t *testing.T) {
	headers := []*plugin.Header{
		header("Skyrim.esm", plugin.TypeESM),
		header("MyMod.esp", plugin.TypeESP, "Skyrim.esm", "Update.esm"),
		header("Update.esm", plugin.TypeESM, "Skyrim.esm"),
	}

	result, err := AnalyzeHeaders(context.Background(), headers)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, IssueWrongOrder, issue.Type)
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Equal(t, "MyMod.esp", issue.Plugin)
	assert.Equal(t, "Update.esm", issue.RelatedPlugin)
	assert.Equal(t, 1, result.Stats.WrongOrderCount)
}

func TestAnalyze_CaseInsensitiveMasterMatch(t *testing.T) {
	headers := []*plugin.Header{
		header("Skyrim.esm", plugin.TypeESM),
		header("MyMod.esp", plugin.TypeESP, "SKYRIM.ESM"),
	}

	result, err := AnalyzeHeaders(context.Background(), headers)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
}

func TestAnalyze_CaseChangeNeverChangesIssues(t *testing.T) {
	build := func(masterName string) []*plugin.Header {
		return []*plugin.Header{
			header(masterName, plugin.TypeESM),
			header("MyMod.esp", plugin.TypeESP, "Skyrim.esm"),
		}
	}

	lower, err := AnalyzeHeaders(context.Background(), build("Skyrim.esm"))
	require.NoError(t, err)
	upper, err := AnalyzeHeaders(context.Background(), build("SKYRIM.ESM"))
	require.NoError(t, err)

	assert.Equal(t, lower.Stats.TotalIssues, upper.Stats.TotalIssues)
	assert.Empty(t, upper.Issues)
}

func TestAnalyze_DuplicatePlugin(t *testing.T) {
	headers := []*plugin.Header{
		header("Skyrim.esm", plugin.TypeESM),
		header("MyMod.esp", plugin.TypeESP, "Skyrim.esm"),
		header("mymod.esp", plugin.TypeESP, "Skyrim.esm"),
	}

	result, err := AnalyzeHeaders(context.Background(), headers)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, IssueDuplicatePlugin, issue.Type)
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Equal(t, "mymod.esp", issue.Plugin)
	assert.Equal(t, "MyMod.esp", issue.RelatedPlugin)
	assert.Equal(t, 2, issue.Index)
	assert.Equal(t, 1, result.Stats.DuplicateCount)
}

func TestAnalyze_FilenameOnlyEntries(t *testing.T) {
	entries := []Entry{
		{Filename: "Skyrim.esm"},
		{Filename: "light.esl"},
		{Filename: "mod.esp"},
	}

	result, err := Analyze(context.Background(), entries)
	require.NoError(t, err)

	assert.Empty(t, result.Issues)
	assert.Equal(t, plugin.TypeESM, result.Plugins[0].Type)
	assert.Equal(t, plugin.TypeESL, result.Plugins[1].Type)
	assert.Equal(t, plugin.TypeESP, result.Plugins[2].Type)
	assert.Equal(t, 1, result.Stats.ESMCount)
	assert.Equal(t, 1, result.Stats.ESLCount)
	assert.Equal(t, 1, result.Stats.ESPCount)
}

func TestAnalyze_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, []Entry{{Filename: "Skyrim.esm"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsPluginFile(t *testing.T) {
	assert.True(t, IsPluginFile("mod.esp"))
	assert.True(t, IsPluginFile("Skyrim.ESM"))
	assert.True(t, IsPluginFile("light.esl"))
	assert.False(t, IsPluginFile("texture.dds"))
	assert.False(t, IsPluginFile("readme.txt"))
	assert.False(t, IsPluginFile("esp"))
}
