package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modscope/backend/internal/analysis"
	"github.com/modscope/backend/internal/nexus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService returns canned results or a fixed error.
type fakeService struct {
	err           error
	lastHashes    bool
	lastRevision  int
	lastSlug      string
	lastGame      string
	lastModID     int
	lastFileID    int
}

func (f *fakeService) Collection(ctx context.Context, slug string) (*nexus.Collection, error) {
	f.lastSlug = slug
	if f.err != nil {
		return nil, f.err
	}
	return &nexus.Collection{ID: 1, Slug: slug, Name: "Test Collection"}, nil
}

func (f *fakeService) Revisions(ctx context.Context, slug string) ([]nexus.Revision, error) {
	f.lastSlug = slug
	if f.err != nil {
		return nil, f.err
	}
	return []nexus.Revision{{ID: 1, RevisionNumber: 1}, {ID: 2, RevisionNumber: 2}}, nil
}

func (f *fakeService) AnalyzeFomod(ctx context.Context, game string, modID, fileID int) (*analysis.FomodAnalysis, error) {
	f.lastGame, f.lastModID, f.lastFileID = game, modID, fileID
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.FomodAnalysis{Game: game, ModID: modID, FileID: fileID, HasFomod: true}, nil
}

func (f *fakeService) AnalyzeCollectionLoadOrder(ctx context.Context, slug string, revision int) (*analysis.LoadOrderAnalysis, error) {
	f.lastSlug, f.lastRevision = slug, revision
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.LoadOrderAnalysis{Slug: slug, Revision: revision}, nil
}

func (f *fakeService) AnalyzeCollectionConflicts(ctx context.Context, slug string, revision int, includeHashes bool) (*analysis.ConflictAnalysis, error) {
	f.lastSlug, f.lastRevision, f.lastHashes = slug, revision, includeHashes
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.ConflictAnalysis{Slug: slug, Revision: revision, IncludeHashes: includeHashes}, nil
}

type fakeQuota struct {
	rl nexus.RateLimit
	ok bool
}

func (f *fakeQuota) RateLimit() (nexus.RateLimit, bool) { return f.rl, f.ok }

func newTestServer(t *testing.T, svc AnalysisService, quota QuotaReporter) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewAPI(svc, quota).Routes(nil))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, server *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &fakeService{}, nil)

	status, body := get(t, server, "/api/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestCollection(t *testing.T) {
	svc := &fakeService{}
	server := newTestServer(t, svc, nil)

	status, body := get(t, server, "/api/collections/my-collection")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "my-collection", svc.lastSlug)
	assert.Equal(t, "Test Collection", body["name"])
}

func TestRevisions(t *testing.T) {
	server := newTestServer(t, &fakeService{}, nil)

	status, body := get(t, server, "/api/collections/my-collection/revisions")
	assert.Equal(t, http.StatusOK, status)
	revisions, ok := body["revisions"].([]any)
	require.True(t, ok)
	assert.Len(t, revisions, 2)
}

func TestLoadOrder(t *testing.T) {
	svc := &fakeService{}
	server := newTestServer(t, svc, nil)

	status, body := get(t, server, "/api/collections/my-collection/revisions/3/loadorder")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, svc.lastRevision)
	assert.Equal(t, "my-collection", body["slug"])
}

func TestLoadOrder_BadRevision(t *testing.T) {
	server := newTestServer(t, &fakeService{}, nil)

	status, body := get(t, server, "/api/collections/my-collection/revisions/latest/loadorder")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "revision")
}

func TestConflicts_IncludeHashes(t *testing.T) {
	svc := &fakeService{}
	server := newTestServer(t, svc, nil)

	status, _ := get(t, server, "/api/collections/c/revisions/1/conflicts?includeHashes=true")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, svc.lastHashes)

	status, _ = get(t, server, "/api/collections/c/revisions/1/conflicts")
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, svc.lastHashes)

	status, body := get(t, server, "/api/collections/c/revisions/1/conflicts?includeHashes=maybe")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "includeHashes")
}

func TestFomod(t *testing.T) {
	svc := &fakeService{}
	server := newTestServer(t, svc, nil)

	status, body := get(t, server, "/api/fomod/skyrimspecialedition/12604/100")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "skyrimspecialedition", svc.lastGame)
	assert.Equal(t, 12604, svc.lastModID)
	assert.Equal(t, 100, svc.lastFileID)
	assert.Equal(t, true, body["hasFomod"])
}

func TestFomod_BadIDs(t *testing.T) {
	server := newTestServer(t, &fakeService{}, nil)

	status, _ := get(t, server, "/api/fomod/skyrim/not-a-number/100")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, server, "/api/fomod/skyrim/100/not-a-number")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"premium", nexus.ErrPremiumOnly, http.StatusPaymentRequired},
		{"unauthorized", nexus.ErrUnauthorized, http.StatusUnauthorized},
		{"not found", nexus.ErrNotFound, http.StatusNotFound},
		{"cancelled", context.Canceled, statusClientClosedRequest},
		{"deadline", context.DeadlineExceeded, statusClientClosedRequest},
		{"wrapped", fmt.Errorf("resolving: %w", nexus.ErrNotFound), http.StatusNotFound},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, &fakeService{err: tc.err}, nil)

			status, body := get(t, server, "/api/collections/c")
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRateLimit(t *testing.T) {
	quota := &fakeQuota{
		rl: nexus.RateLimit{
			HourlyLimit:     500,
			HourlyRemaining: 342,
			DailyLimit:      10000,
			DailyRemaining:  9120,
			ObservedAt:      time.Now(),
		},
		ok: true,
	}
	server := newTestServer(t, &fakeService{}, quota)

	status, body := get(t, server, "/api/ratelimit")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["observed"])
	q, ok := body["quota"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(342), q["hourlyRemaining"])
}

func TestRateLimit_NothingObserved(t *testing.T) {
	server := newTestServer(t, &fakeService{}, &fakeQuota{})

	status, body := get(t, server, "/api/ratelimit")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["observed"])
	assert.NotContains(t, body, "quota")
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, &fakeService{}, nil)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteIs404(t *testing.T) {
	server := newTestServer(t, &fakeService{}, nil)

	resp, err := http.Get(server.URL + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
