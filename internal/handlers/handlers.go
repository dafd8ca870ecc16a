package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/modscope/backend/internal/analysis"
	"github.com/modscope/backend/internal/nexus"

	"github.com/rs/cors"
)

// AnalysisService is the pipeline surface the handlers expose.
// Satisfied by *analysis.Service.
type AnalysisService interface {
	Collection(ctx context.Context, slug string) (*nexus.Collection, error)
	Revisions(ctx context.Context, slug string) ([]nexus.Revision, error)
	AnalyzeFomod(ctx context.Context, game string, modID, fileID int) (*analysis.FomodAnalysis, error)
	AnalyzeCollectionLoadOrder(ctx context.Context, slug string, revision int) (*analysis.LoadOrderAnalysis, error)
	AnalyzeCollectionConflicts(ctx context.Context, slug string, revision int, includeHashes bool) (*analysis.ConflictAnalysis, error)
}

// QuotaReporter exposes the registry client's latest quota snapshot.
// Satisfied by *nexus.Client.
type QuotaReporter interface {
	RateLimit() (nexus.RateLimit, bool)
}

// API serves the analysis pipelines over HTTP.
type API struct {
	service AnalysisService
	quota   QuotaReporter
}

// NewAPI creates the HTTP surface over a service. quota may be nil when
// no registry client is attached.
func NewAPI(service AnalysisService, quota QuotaReporter) *API {
	return &API{service: service, quota: quota}
}

// Routes returns the full handler with CORS applied. An empty origin
// list allows any origin.
func (a *API) Routes(corsOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/ratelimit", a.handleRateLimit)
	mux.HandleFunc("GET /api/collections/{slug}", a.handleCollection)
	mux.HandleFunc("GET /api/collections/{slug}/revisions", a.handleRevisions)
	mux.HandleFunc("GET /api/collections/{slug}/revisions/{revision}/loadorder", a.handleLoadOrder)
	mux.HandleFunc("GET /api/collections/{slug}/revisions/{revision}/conflicts", a.handleConflicts)
	mux.HandleFunc("GET /api/fomod/{game}/{modId}/{fileId}", a.handleFomod)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rateLimitResponse struct {
	Observed bool             `json:"observed"`
	Quota    *nexus.RateLimit `json:"quota,omitempty"`
}

func (a *API) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	resp := rateLimitResponse{}
	if a.quota != nil {
		if rl, ok := a.quota.RateLimit(); ok {
			resp.Observed = true
			resp.Quota = &rl
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCollection(w http.ResponseWriter, r *http.Request) {
	col, err := a.service.Collection(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}

func (a *API) handleRevisions(w http.ResponseWriter, r *http.Request) {
	revisions, err := a.service.Revisions(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
}

func (a *API) handleLoadOrder(w http.ResponseWriter, r *http.Request) {
	revision, err := strconv.Atoi(r.PathValue("revision"))
	if err != nil {
		writeBadRequest(w, "invalid revision number")
		return
	}

	result, err := a.service.AnalyzeCollectionLoadOrder(r.Context(), r.PathValue("slug"), revision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleConflicts(w http.ResponseWriter, r *http.Request) {
	revision, err := strconv.Atoi(r.PathValue("revision"))
	if err != nil {
		writeBadRequest(w, "invalid revision number")
		return
	}

	includeHashes := false
	if v := r.URL.Query().Get("includeHashes"); v != "" {
		includeHashes, err = strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "invalid includeHashes value")
			return
		}
	}

	result, err := a.service.AnalyzeCollectionConflicts(r.Context(), r.PathValue("slug"), revision, includeHashes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleFomod(w http.ResponseWriter, r *http.Request) {
	game := r.PathValue("game")
	modID, err := strconv.Atoi(r.PathValue("modId"))
	if err != nil {
		writeBadRequest(w, "invalid mod id")
		return
	}
	fileID, err := strconv.Atoi(r.PathValue("fileId"))
	if err != nil {
		writeBadRequest(w, "invalid file id")
		return
	}

	result, err := a.service.AnalyzeFomod(r.Context(), game, modID, fileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
