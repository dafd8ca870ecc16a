package nexus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hasura/go-graphql-client"
)

const (
	graphqlEndpoint = "https://api.nexusmods.com/v2/graphql"
	restBaseURL     = "https://api.nexusmods.com"
)

// Client wraps the Nexus Mods v2 GraphQL API and the v1 REST download
// endpoint behind one paced, retried surface.
type Client struct {
	gql      *graphql.Client
	http     *http.Client
	limiter  *limiter
	retry    retryPolicy
	restBase string
}

// Options tune a Client. The zero value uses production endpoints and
// default retry settings.
type Options struct {
	// HTTPClient supplies the underlying transport. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
	// GraphQLURL overrides the GraphQL endpoint, for tests.
	GraphQLURL string
	// RESTBaseURL overrides the REST base URL, for tests.
	RESTBaseURL string

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NewClient creates a client authenticating with creds. Returns
// ErrNotConfigured when no credential is available.
func NewClient(creds CredentialProvider, opts Options) (*Client, error) {
	if creds == nil || creds.APIKey() == "" {
		return nil, ErrNotConfigured
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	lim := newLimiter()
	authed := &http.Client{
		Transport: &transport{base: base.Transport, creds: creds, limiter: lim},
		Timeout:   base.Timeout,
	}

	gqlURL := opts.GraphQLURL
	if gqlURL == "" {
		gqlURL = graphqlEndpoint
	}
	restBase := opts.RESTBaseURL
	if restBase == "" {
		restBase = restBaseURL
	}

	retry := retryPolicy{
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
	}
	if retry.maxRetries <= 0 {
		retry.maxRetries = defaultMaxRetries
	}
	if retry.initialBackoff <= 0 {
		retry.initialBackoff = defaultInitialBackoff
	}
	if retry.maxBackoff <= 0 {
		retry.maxBackoff = defaultMaxBackoff
	}

	return &Client{
		gql:      graphql.NewClient(gqlURL, authed),
		http:     authed,
		limiter:  lim,
		retry:    retry,
		restBase: strings.TrimRight(restBase, "/"),
	}, nil
}

// query runs one GraphQL query with retry and error classification.
func (c *Client) query(ctx context.Context, q interface{}, variables map[string]interface{}) error {
	return c.retry.do(ctx, func() error {
		obsCtx, obs := withObservation(ctx)
		err := c.gql.Query(obsCtx, q, variables)
		return classify(err, obs)
	})
}

// classify maps a raw query failure onto the package's sentinel errors,
// preferring the observed HTTP status over the GraphQL layer's wrapping.
func classify(err error, obs *responseObservation) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch {
	case obs.status == http.StatusUnauthorized || obs.status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, obs.status)
	case obs.status == http.StatusNotFound:
		return fmt.Errorf("%w: status 404", ErrNotFound)
	case obs.status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", ErrRateLimited)
	case obs.status >= 500:
		return fmt.Errorf("%w: status %d", ErrServerError, obs.status)
	}

	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) {
		if strings.Contains(strings.ToLower(gqlErrs.Error()), "not found") {
			return fmt.Errorf("%w: %v", ErrNotFound, gqlErrs)
		}
		return fmt.Errorf("%w: %v", ErrGraphQL, gqlErrs)
	}
	return fmt.Errorf("graphql request: %w", err)
}

// GetCollection fetches a collection's metadata by slug.
func (c *Client) GetCollection(ctx context.Context, slug string) (*Collection, error) {
	var query struct {
		Collection Collection `graphql:"collection(slug: $slug, viewAdultContent: true)"`
	}

	variables := map[string]interface{}{
		"slug": graphql.String(slug),
	}

	if err := c.query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", slug, err)
	}
	if query.Collection.ID == 0 {
		return nil, fmt.Errorf("collection %q: %w", slug, ErrNotFound)
	}

	return &query.Collection, nil
}

// GetRevisions lists the published revisions of a collection, newest
// first as the API returns them.
func (c *Client) GetRevisions(ctx context.Context, slug string) ([]Revision, error) {
	var query struct {
		Collection struct {
			ID        int        `graphql:"id"`
			Revisions []Revision `graphql:"revisions"`
		} `graphql:"collection(slug: $slug, viewAdultContent: true)"`
	}

	variables := map[string]interface{}{
		"slug": graphql.String(slug),
	}

	if err := c.query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying revisions for %q: %w", slug, err)
	}
	if query.Collection.ID == 0 {
		return nil, fmt.Errorf("collection %q: %w", slug, ErrNotFound)
	}

	return query.Collection.Revisions, nil
}

// GetRevisionMods fetches the full file manifest of one revision,
// including the owning collection's game domain.
func (c *Client) GetRevisionMods(ctx context.Context, slug string, revision int) (*RevisionDetails, error) {
	var query struct {
		CollectionRevision RevisionDetails `graphql:"collectionRevision(slug: $slug, revision: $revision, viewAdultContent: true)"`
	}

	variables := map[string]interface{}{
		"slug":     graphql.String(slug),
		"revision": graphql.Int(revision),
	}

	if err := c.query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying revision %d of %q: %w", revision, slug, err)
	}
	if query.CollectionRevision.ID == 0 {
		return nil, fmt.Errorf("revision %d of %q: %w", revision, slug, ErrNotFound)
	}

	return &query.CollectionRevision, nil
}

// GetDownloadLinks fetches time-limited CDN links for one mod file via
// the v1 REST endpoint. Requires a premium account; ErrPremiumOnly is
// returned otherwise.
func (c *Client) GetDownloadLinks(ctx context.Context, game string, modID, fileID int) ([]DownloadLink, error) {
	url := fmt.Sprintf("%s/v1/games/%s/mods/%d/files/%d/download_link.json", c.restBase, game, modID, fileID)

	var links []DownloadLink
	err := c.retry.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fetching download links: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusForbidden:
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("download links for mod %d file %d: %w", modID, fileID, ErrPremiumOnly)
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: status 401", ErrUnauthorized)
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("mod %d file %d: %w", modID, fileID, ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: status 429", ErrRateLimited)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
		default:
			return fmt.Errorf("download links: unexpected status %d", resp.StatusCode)
		}

		links = links[:0]
		if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
			return fmt.Errorf("decoding download links: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return links, nil
}

// ValidateCredential checks whether the configured API key is accepted
// by the registry. An unauthorized response yields (false, nil).
func (c *Client) ValidateCredential(ctx context.Context) (bool, error) {
	var query struct {
		CurrentUser struct {
			Name string `graphql:"name"`
		} `graphql:"currentUser"`
	}

	err := c.query(ctx, &query, nil)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validating credential: %w", err)
	}
	return true, nil
}

// RateLimit returns the most recently observed quota snapshot. ok is
// false until at least one response carried quota headers.
func (c *Client) RateLimit() (RateLimit, bool) {
	return c.limiter.Snapshot()
}
