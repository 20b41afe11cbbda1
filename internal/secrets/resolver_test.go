package secrets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/delta"
	pkgsecrets "github.com/tradedeck/delta-adapter/pkg/secrets"
)

type fakeProvider struct {
	secrets map[string]map[string]string
	names   []string
	calls   int
}

func (f *fakeProvider) GetSecret(ctx context.Context, key string) (map[string]string, error) {
	f.calls++
	if s, ok := f.secrets[key]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("secret %q not found", key)
}

func (f *fakeProvider) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	return f.names, nil
}

func validSecret() map[string]string {
	return map[string]string{
		"api_key":    "k",
		"api_secret": "s",
		"base_url":   "https://api.delta.exchange",
	}
}

func newTestResolver(p pkgsecrets.Provider) *DeltaResolver {
	cache := pkgsecrets.NewCache[delta.Credentials](time.Minute)
	return NewDeltaResolver(zap.NewNop(), "dev", p, cache)
}

func TestDeltaResolver_ResolveUsesNamingConvention(t *testing.T) {
	provider := &fakeProvider{secrets: map[string]map[string]string{
		"dev/acme/delta": validSecret(),
	}}
	r := newTestResolver(provider)

	creds, err := r.Resolve(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, "k", creds.Key)
	assert.Equal(t, "https://api.delta.exchange", creds.BaseURL)
}

func TestDeltaResolver_CachesAcrossResolves(t *testing.T) {
	provider := &fakeProvider{secrets: map[string]map[string]string{
		"dev/acme/delta": validSecret(),
	}}
	r := newTestResolver(provider)

	_, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}

func TestDeltaResolver_BustForcesRefetch(t *testing.T) {
	provider := &fakeProvider{secrets: map[string]map[string]string{
		"dev/acme/delta": validSecret(),
	}}
	r := newTestResolver(provider)

	_, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)

	r.Bust("acme")
	_, err = r.Resolve(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestDeltaResolver_MissingFieldsRejected(t *testing.T) {
	for _, missing := range []string{"api_key", "api_secret", "base_url"} {
		t.Run(missing, func(t *testing.T) {
			secret := validSecret()
			delete(secret, missing)
			provider := &fakeProvider{secrets: map[string]map[string]string{
				"dev/acme/delta": secret,
			}}
			r := newTestResolver(provider)

			_, err := r.Resolve(context.Background(), "acme")
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestDeltaResolver_DiscoverClients(t *testing.T) {
	provider := &fakeProvider{names: []string{
		"dev/acme/delta",
		"dev/globex/delta",
		"dev/acme/othervenue",
		"dev/nested/extra/delta",
	}}
	r := newTestResolver(provider)

	clients, err := r.DiscoverClients(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acme", "globex"}, clients)
}
