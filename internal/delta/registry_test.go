package delta

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/async"
)

type stubResolver struct {
	creds Credentials
	err   error
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, clientID string) (Credentials, error) {
	s.calls++
	if s.err != nil {
		return Credentials{}, s.err
	}
	return s.creds, nil
}

func newTestRegistry(resolver CredentialsResolver) *Registry {
	gw := async.NewGateway(1, zap.NewNop())
	return NewRegistry(zap.NewNop(), resolver, gw, nil, nil)
}

func TestRegistry_ReusesAdapterWhileCredentialsStable(t *testing.T) {
	resolver := &stubResolver{creds: Credentials{Key: "k", Secret: "s", BaseURL: "https://venue.test"}}
	r := newTestRegistry(resolver)

	a1, err := r.Get(context.Background(), "acme")
	require.NoError(t, err)
	a2, err := r.Get(context.Background(), "acme")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RebuildsOnCredentialRotation(t *testing.T) {
	resolver := &stubResolver{creds: Credentials{Key: "k1", Secret: "s", BaseURL: "https://venue.test"}}
	r := newTestRegistry(resolver)

	a1, err := r.Get(context.Background(), "acme")
	require.NoError(t, err)

	resolver.creds.Key = "k2"
	a2, err := r.Get(context.Background(), "acme")
	require.NoError(t, err)

	assert.NotSame(t, a1, a2)
	assert.Equal(t, "k2", a2.Credentials().Key)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RequiresClientID(t *testing.T) {
	r := newTestRegistry(&stubResolver{})

	_, err := r.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestRegistry_ResolverErrorPropagates(t *testing.T) {
	resolver := &stubResolver{err: fmt.Errorf("secret not found")}
	r := newTestRegistry(resolver)

	_, err := r.Get(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret not found")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Remove(t *testing.T) {
	resolver := &stubResolver{creds: Credentials{Key: "k", Secret: "s", BaseURL: "https://venue.test"}}
	r := newTestRegistry(resolver)

	_, err := r.Get(context.Background(), "acme")
	require.NoError(t, err)

	r.Remove("acme")
	assert.Equal(t, 0, r.Len())
}
