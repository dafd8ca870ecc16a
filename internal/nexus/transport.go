package nexus

import (
	"context"
	"net/http"
)

type observationKey struct{}

// responseObservation records the HTTP status of one request so the
// error classifier can see it even when the GraphQL layer swallows the
// response. One observation per request; concurrent queries never share.
type responseObservation struct {
	status int
}

func withObservation(ctx context.Context) (context.Context, *responseObservation) {
	obs := &responseObservation{}
	return context.WithValue(ctx, observationKey{}, obs), obs
}

// transport paces every outgoing request, injects the API credential,
// and records quota headers from the response. The credential is never
// logged.
type transport struct {
	base    http.RoundTripper
	creds   CredentialProvider
	limiter *limiter
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.wait(req.Context()); err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	if key := t.creds.APIKey(); key != "" {
		req.Header.Set("apikey", key)
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	t.limiter.observe(resp.Header)
	if obs, ok := req.Context().Value(observationKey{}).(*responseObservation); ok {
		obs.status = resp.StatusCode
	}
	return resp, nil
}
