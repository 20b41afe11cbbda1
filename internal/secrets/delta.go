package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/delta"
	pkgsecrets "github.com/tradedeck/delta-adapter/pkg/secrets"
)

// DeltaResolver resolves per-client venue credentials from AWS Secrets
// Manager. It is a thin wrapper over the generic AWSResolver[delta.Credentials].
//
// Secret naming convention: {env}/{clientID}/delta
// Secret JSON format:       {"api_key": "...", "api_secret": "...", "base_url": "https://..."}
type DeltaResolver struct {
	inner *AWSResolver[delta.Credentials]
}

// NewDeltaResolver constructs a venue credential resolver backed by AWS
// Secrets Manager with a local TTL cache.
func NewDeltaResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[delta.Credentials],
) *DeltaResolver {
	return &DeltaResolver{
		inner: NewAWSResolver(logger, env, "delta", provider, cache),
	}
}

// Resolve fetches or caches the credentials for a given client ID.
func (r *DeltaResolver) Resolve(ctx context.Context, clientID string) (delta.Credentials, error) {
	return r.inner.Resolve(ctx, clientID, parseDeltaCredentials)
}

// DiscoverClients lists all client IDs that have venue secrets configured.
func (r *DeltaResolver) DiscoverClients(ctx context.Context) ([]string, error) {
	return r.inner.DiscoverClients(ctx)
}

// Bust evicts a client's cached credentials (e.g. after rotation).
func (r *DeltaResolver) Bust(clientID string) {
	r.inner.Bust(clientID)
}

// parseDeltaCredentials extracts credentials from the raw secret map.
func parseDeltaCredentials(m map[string]string) (delta.Credentials, error) {
	creds := delta.Credentials{
		Key:     m["api_key"],
		Secret:  m["api_secret"],
		BaseURL: m["base_url"],
	}
	if creds.Key == "" {
		return delta.Credentials{}, fmt.Errorf("missing required field 'api_key'")
	}
	if creds.Secret == "" {
		return delta.Credentials{}, fmt.Errorf("missing required field 'api_secret'")
	}
	if creds.BaseURL == "" {
		return delta.Credentials{}, fmt.Errorf("missing required field 'base_url'")
	}
	return creds, nil
}
