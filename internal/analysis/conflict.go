package analysis

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/modscope/backend/internal/conflict"
	"github.com/modscope/backend/internal/manifest"
	"github.com/modscope/backend/internal/nexus"
)

// AnalyzeCollectionConflicts builds a file manifest per required mod
// of one revision and detects overlapping paths. With includeHashes a
// SHA-256 is computed per file, enabling byte-identical duplicate
// detection at the cost of reading every archive in full. A mod whose
// archive cannot be fetched or read is skipped with a warning; the
// remaining mods still produce a report.
func (s *Service) AnalyzeCollectionConflicts(ctx context.Context, slug string, revision int, includeHashes bool) (*ConflictAnalysis, error) {
	key := conflictsKey(slug, revision, includeHashes)

	var cached ConflictAnalysis
	if s.cacheGet(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	details, err := s.registry.GetRevisionMods(ctx, slug, revision)
	if err != nil {
		return nil, err
	}
	game := details.Collection.Game.DomainName

	var mods []conflict.ModManifest
	for _, ref := range details.ModFiles {
		if ref.Optional || ref.File == nil || ref.File.Mod == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := s.buildManifest(ctx, game, ref, includeHashes)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Printf("Warning: skipping %s: %v", modLabel(ref), err)
			continue
		}

		mods = append(mods, conflict.ModManifest{
			ModID:     strconv.Itoa(ref.File.Mod.ModID),
			ModName:   ref.File.Mod.Name,
			LoadOrder: len(mods),
			Manifest:  m,
		})
	}

	analyzed, err := s.conflicts.Analyze(ctx, mods)
	if err != nil {
		return nil, err
	}

	result := &ConflictAnalysis{
		Slug:           slug,
		Revision:       revision,
		IncludeHashes:  includeHashes,
		CollectionName: details.Collection.Name,
		Game:           game,
		Result:         analyzed,
	}
	s.cachePut(ctx, key, result, s.ttl)
	return result, nil
}

// buildManifest downloads one mod file and lists its contents without
// keeping anything on disk beyond the archive itself.
func (s *Service) buildManifest(ctx context.Context, game string, ref nexus.ModFileReference, includeHashes bool) (*manifest.Manifest, error) {
	download, err := s.download(ctx, game, modLabel(ref), ref.File.Mod.ModID, ref.File.FileID)
	if err != nil {
		return nil, err
	}
	defer s.downloader.CleanupPath(download.FilePath)

	if includeHashes {
		return s.manifests.ExtractManifestWithHashes(ctx, download.FilePath)
	}
	return s.manifests.ExtractManifest(ctx, download.FilePath)
}
