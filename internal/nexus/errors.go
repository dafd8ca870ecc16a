package nexus

import "errors"

var (
	// ErrNotConfigured is returned when a client is constructed without
	// an API credential.
	ErrNotConfigured = errors.New("nexus API key not configured")
	// ErrUnauthorized is returned for 401/403 responses.
	ErrUnauthorized = errors.New("nexus request unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("nexus resource not found")
	// ErrRateLimited is returned for 429 responses. Transient; retried.
	ErrRateLimited = errors.New("nexus rate limit exceeded")
	// ErrServerError is returned for 5xx responses. Transient; retried.
	ErrServerError = errors.New("nexus server error")
	// ErrGraphQL is returned when a query succeeds at the transport
	// level but the response carries GraphQL errors.
	ErrGraphQL = errors.New("nexus graphql error")
	// ErrPremiumOnly is returned when download links require a premium
	// account the credential does not have.
	ErrPremiumOnly = errors.New("nexus premium account required")
)
