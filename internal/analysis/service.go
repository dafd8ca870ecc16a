package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modscope/backend/internal/archive"
	"github.com/modscope/backend/internal/cache"
	"github.com/modscope/backend/internal/conflict"
	"github.com/modscope/backend/internal/fomod"
	"github.com/modscope/backend/internal/loadorder"
	"github.com/modscope/backend/internal/manifest"
	"github.com/modscope/backend/internal/nexus"
)

const (
	// defaultCacheTTL covers analysis results; they only change when a
	// new revision is published under the same number, which upstream
	// does not do.
	defaultCacheTTL = 168 * time.Hour
	// defaultMetadataTTL covers collection metadata, which changes
	// whenever a curator publishes.
	defaultMetadataTTL = 6 * time.Hour
)

// Registry is the subset of the upstream client the pipelines need.
// Satisfied by *nexus.Client.
type Registry interface {
	GetCollection(ctx context.Context, slug string) (*nexus.Collection, error)
	GetRevisions(ctx context.Context, slug string) ([]nexus.Revision, error)
	GetRevisionMods(ctx context.Context, slug string, revision int) (*nexus.RevisionDetails, error)
	GetDownloadLinks(ctx context.Context, game string, modID, fileID int) ([]nexus.DownloadLink, error)
}

// FomodAnalysis is the result of analyzing one mod file's installer.
type FomodAnalysis struct {
	Game     string       `json:"game"`
	ModID    int          `json:"modId"`
	FileID   int          `json:"fileId"`
	HasFomod bool         `json:"hasFomod"`
	Data     *fomod.Model `json:"data,omitempty"`
	Cached   bool         `json:"cached"`
}

// LoadOrderAnalysis is the result of analyzing one revision's plugins.
type LoadOrderAnalysis struct {
	Slug           string            `json:"slug"`
	Revision       int               `json:"revision"`
	CollectionName string            `json:"collectionName"`
	Game           string            `json:"game"`
	Result         *loadorder.Result `json:"result"`
	Cached         bool              `json:"cached"`
}

// ConflictAnalysis is the result of analyzing one revision's overlaps.
type ConflictAnalysis struct {
	Slug           string           `json:"slug"`
	Revision       int              `json:"revision"`
	IncludeHashes  bool             `json:"includeHashes"`
	CollectionName string           `json:"collectionName"`
	Game           string           `json:"game"`
	Result         *conflict.Result `json:"result"`
	Cached         bool             `json:"cached"`
}

// Options tune a Service. Zero values pick the defaults.
type Options struct {
	CacheTTL    time.Duration
	MetadataTTL time.Duration
}

// Service composes the registry client, archive I/O and the analyzers
// into the three cacheable pipelines the HTTP surface serves.
type Service struct {
	registry    Registry
	downloader  *archive.Downloader
	extractor   *archive.Extractor
	manifests   *manifest.Extractor
	conflicts   *conflict.Analyzer
	store       *cache.Cache
	ttl         time.Duration
	metadataTTL time.Duration
}

// NewService creates a Service over the given collaborators.
func NewService(registry Registry, downloader *archive.Downloader, extractor *archive.Extractor, store *cache.Cache, opts Options) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	metadataTTL := opts.MetadataTTL
	if metadataTTL <= 0 {
		metadataTTL = defaultMetadataTTL
	}

	return &Service{
		registry:    registry,
		downloader:  downloader,
		extractor:   extractor,
		manifests:   manifest.NewExtractor(),
		conflicts:   conflict.NewAnalyzer(),
		store:       store,
		ttl:         ttl,
		metadataTTL: metadataTTL,
	}
}

func fomodKey(game string, modID, fileID int) string {
	return fmt.Sprintf("fomod:%s:%d:%d", game, modID, fileID)
}

func loadorderKey(slug string, revision int) string {
	return fmt.Sprintf("loadorder:%s:%d", slug, revision)
}

func conflictsKey(slug string, revision int, includeHashes bool) string {
	return fmt.Sprintf("conflicts:%s:%d:%t", slug, revision, includeHashes)
}

// cacheGet reports whether key was found and decoded into dest. Misses
// and expiries are silent; real cache failures degrade to a miss with
// a warning.
func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	err := s.store.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, cache.ErrExpired) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("Warning: cache read %s: %v", key, err)
	}
	return false
}

// cachePut stores the result best-effort. A failed write costs a
// recomputation later, never the response.
func (s *Service) cachePut(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		log.Printf("Warning: cache write %s: %v", key, err)
	}
}

// Collection returns collection metadata, cached briefly.
func (s *Service) Collection(ctx context.Context, slug string) (*nexus.Collection, error) {
	key := "collection:" + slug

	var cached nexus.Collection
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	col, err := s.registry.GetCollection(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, key, col, s.metadataTTL)
	return col, nil
}

// Revisions returns a collection's revision history, cached briefly.
func (s *Service) Revisions(ctx context.Context, slug string) ([]nexus.Revision, error) {
	key := "revisions:" + slug

	var cached []nexus.Revision
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	revisions, err := s.registry.GetRevisions(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, key, revisions, s.metadataTTL)
	return revisions, nil
}

// download resolves links for one file and streams it to scratch.
// label names the mod in errors.
func (s *Service) download(ctx context.Context, game, label string, modID, fileID int) (*archive.DownloadResult, error) {
	links, err := s.registry.GetDownloadLinks(ctx, game, modID, fileID)
	if err != nil {
		return nil, fmt.Errorf("download links for %s: %w", label, err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%s: %w", label, archive.ErrNoURL)
	}

	result, err := s.downloader.Download(ctx, links[0].URI, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", label, err)
	}
	return result, nil
}
