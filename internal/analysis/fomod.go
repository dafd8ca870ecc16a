package analysis

import (
	"context"
	"fmt"

	"github.com/modscope/backend/internal/fomod"
)

// AnalyzeFomod downloads one mod file and parses its FOMOD installer.
// Archives without a fomod directory yield hasFomod=false; that
// negative result is cached too.
func (s *Service) AnalyzeFomod(ctx context.Context, game string, modID, fileID int) (*FomodAnalysis, error) {
	key := fomodKey(game, modID, fileID)

	var cached FomodAnalysis
	if s.cacheGet(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	label := fmt.Sprintf("mod %d file %d", modID, fileID)
	download, err := s.download(ctx, game, label, modID, fileID)
	if err != nil {
		return nil, err
	}
	defer s.downloader.CleanupPath(download.FilePath)

	result := &FomodAnalysis{
		Game:   game,
		ModID:  modID,
		FileID: fileID,
	}

	hasFomod, err := s.extractor.HasSubtree(ctx, download.FilePath, "fomod/")
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", label, err)
	}

	if hasFomod {
		tree, err := s.extractor.ExtractFomod(ctx, download.FilePath)
		if err != nil {
			return nil, fmt.Errorf("extracting installer for %s: %w", label, err)
		}
		defer tree.Cleanup()

		model, err := fomod.ParseDirectory(tree.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("parsing installer for %s: %w", label, err)
		}

		result.HasFomod = true
		result.Data = model
	}

	s.cachePut(ctx, key, result, s.ttl)
	return result, nil
}
