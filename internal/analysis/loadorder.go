package analysis

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"sort"

	"github.com/modscope/backend/internal/loadorder"
	"github.com/modscope/backend/internal/nexus"
	"github.com/modscope/backend/internal/plugin"
)

// AnalyzeCollectionLoadOrder downloads every required mod of one
// revision, parses the plugin headers it ships, and checks the
// resulting load order. A failed download aborts the pipeline naming
// the offending mod; a plugin that fails to parse degrades to a
// filename-only entry.
func (s *Service) AnalyzeCollectionLoadOrder(ctx context.Context, slug string, revision int) (*LoadOrderAnalysis, error) {
	key := loadorderKey(slug, revision)

	var cached LoadOrderAnalysis
	if s.cacheGet(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	details, err := s.registry.GetRevisionMods(ctx, slug, revision)
	if err != nil {
		return nil, err
	}
	game := details.Collection.Game.DomainName

	var entries []loadorder.Entry
	for _, ref := range details.ModFiles {
		if ref.Optional || ref.File == nil || ref.File.Mod == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		modEntries, err := s.collectPlugins(ctx, game, ref)
		if err != nil {
			return nil, err
		}
		entries = append(entries, modEntries...)
	}

	analyzed, err := loadorder.Analyze(ctx, entries)
	if err != nil {
		return nil, err
	}

	result := &LoadOrderAnalysis{
		Slug:           slug,
		Revision:       revision,
		CollectionName: details.Collection.Name,
		Game:           game,
		Result:         analyzed,
	}
	s.cachePut(ctx, key, result, s.ttl)
	return result, nil
}

// collectPlugins downloads one mod file and parses every plugin it
// contains, in a stable order. Scratch state is released before
// returning.
func (s *Service) collectPlugins(ctx context.Context, game string, ref nexus.ModFileReference) ([]loadorder.Entry, error) {
	label := modLabel(ref)

	download, err := s.download(ctx, game, label, ref.File.Mod.ModID, ref.File.FileID)
	if err != nil {
		return nil, err
	}
	defer s.downloader.CleanupPath(download.FilePath)

	files, err := s.extractor.ListFiles(ctx, download.FilePath)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", label, err)
	}

	var pluginPaths []string
	for _, f := range files {
		if loadorder.IsPluginFile(f) {
			pluginPaths = append(pluginPaths, f)
		}
	}
	if len(pluginPaths) == 0 {
		return nil, nil
	}
	sort.Strings(pluginPaths)

	tree, err := s.extractor.ExtractPaths(ctx, download.FilePath, pluginPaths)
	if err != nil {
		return nil, fmt.Errorf("extracting plugins from %s: %w", label, err)
	}
	defer tree.Cleanup()

	var entries []loadorder.Entry
	for _, rel := range tree.Files {
		filename := path.Base(rel)
		header, err := plugin.ParseFile(filepath.Join(tree.OutputDir, filepath.FromSlash(rel)))
		if err != nil {
			log.Printf("Warning: parsing %s from %s: %v", filename, label, err)
			entries = append(entries, loadorder.Entry{Filename: filename})
			continue
		}
		entries = append(entries, loadorder.Entry{Filename: filename, Header: header})
	}
	return entries, nil
}

func modLabel(ref nexus.ModFileReference) string {
	if ref.File == nil {
		return "unknown mod"
	}
	if ref.File.Mod != nil && ref.File.Mod.Name != "" {
		return fmt.Sprintf("%s (mod %d)", ref.File.Mod.Name, ref.File.Mod.ModID)
	}
	return fmt.Sprintf("file %d", ref.File.FileID)
}
