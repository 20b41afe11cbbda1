package delta

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/async"
	"github.com/tradedeck/delta-adapter/internal/rate"
)

// CredentialsResolver resolves the venue credentials for a client ID.
type CredentialsResolver interface {
	Resolve(ctx context.Context, clientID string) (Credentials, error)
}

// Registry hands out one Adapter per client. Adapters are immutable with
// respect to credentials, so a cached instance is reused until the resolved
// credentials change (e.g. after rotation), at which point a fresh adapter is
// built around the new set.
type Registry struct {
	logger   *zap.Logger
	resolver CredentialsResolver
	gw       *async.Gateway
	rateMgr  *rate.Manager
	cache    Cache

	mu       sync.Mutex
	adapters map[string]*Adapter
}

// NewRegistry creates an empty adapter registry. cache may be nil.
func NewRegistry(logger *zap.Logger, resolver CredentialsResolver, gw *async.Gateway, rateMgr *rate.Manager, cache Cache) *Registry {
	return &Registry{
		logger:   logger,
		resolver: resolver,
		gw:       gw,
		rateMgr:  rateMgr,
		cache:    cache,
		adapters: make(map[string]*Adapter),
	}
}

// Get returns the adapter for clientID, building one on first use.
func (r *Registry) Get(ctx context.Context, clientID string) (*Adapter, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}

	creds, err := r.resolver.Resolve(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials for %q: %w", clientID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[clientID]; ok && a.Credentials() == creds {
		return a, nil
	}

	client := NewClient(r.logger, r.rateMgr, creds)
	a := NewAdapter(creds, client, r.gw, r.cache, r.logger)
	r.adapters[clientID] = a

	r.logger.Info("delta.adapter_registered", zap.String("client", clientID))
	return a, nil
}

// Remove drops a client's cached adapter (e.g. on credential revocation).
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	delete(r.adapters, clientID)
	r.mu.Unlock()
}

// Len reports the number of cached adapters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.adapters)
}
