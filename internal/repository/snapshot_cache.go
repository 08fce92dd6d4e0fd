package repository

import (
	"context"
	"errors"
	"fmt"

	"KellyMux/internal/domain/models"
	"KellyMux/internal/domain/repository"
	pkgcache "KellyMux/pkg/cache"
)

const (
	aggregateKey = "snapshot:aggregate"
	rosterKey    = "snapshot:roster"
)

// CacheSnapshotStore implements SnapshotCache over a cache service (Redis or
// in-process memory). Entries never expire; each write replaces the previous
// snapshot.
type CacheSnapshotStore struct {
	cache pkgcache.Service
}

// NewCacheSnapshotStore creates a snapshot store over the given cache.
func NewCacheSnapshotStore(cache pkgcache.Service) repository.SnapshotCache {
	return &CacheSnapshotStore{cache: cache}
}

func (s *CacheSnapshotStore) StoreAggregate(ctx context.Context, p models.TargetPortfolio) error {
	if err := s.cache.Set(ctx, aggregateKey, p, 0); err != nil {
		return fmt.Errorf("store aggregate snapshot: %w", err)
	}
	return nil
}

func (s *CacheSnapshotStore) LoadAggregate(ctx context.Context) (models.TargetPortfolio, bool, error) {
	var p models.TargetPortfolio
	err := s.cache.Get(ctx, aggregateKey, &p)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return models.TargetPortfolio{}, false, nil
		}
		return models.TargetPortfolio{}, false, fmt.Errorf("load aggregate snapshot: %w", err)
	}
	return p, true, nil
}

func (s *CacheSnapshotStore) StoreRoster(ctx context.Context, clients map[string]models.RiskParams) error {
	if err := s.cache.Set(ctx, rosterKey, clients, 0); err != nil {
		return fmt.Errorf("store roster snapshot: %w", err)
	}
	return nil
}

func (s *CacheSnapshotStore) Close() error {
	return s.cache.Close()
}
