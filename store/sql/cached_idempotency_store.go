package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-webhooks/core"
)

const idempotencyCacheKeyPrefix = "go-webhooks::idempotency::v1"

// CachedIdempotencyStore layers a read-through cache over a base idempotency
// store. Processed markers are immutable once written, so the only
// invalidation point is MarkProcessed, which drops the cached miss for that
// event id.
type CachedIdempotencyStore struct {
	base  core.IdempotencyStore
	cache repositorycache.CacheService
}

func NewCachedIdempotencyStore(
	base core.IdempotencyStore,
	cacheService repositorycache.CacheService,
) (*CachedIdempotencyStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base idempotency store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: idempotency cache service is required")
	}
	return &CachedIdempotencyStore{base: base, cache: cacheService}, nil
}

// IdempotencyCacheKey returns the deterministic cache key contract for
// processed-marker reads: go-webhooks::idempotency::v1::<event_id> with the
// event id URL-path escaped.
func IdempotencyCacheKey(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", fmt.Errorf("sqlstore: event id is required")
	}
	return strings.Join([]string{idempotencyCacheKeyPrefix, url.PathEscape(eventID)}, "::"), nil
}

func (s *CachedIdempotencyStore) Get(ctx context.Context, eventID string) (core.IdempotencyRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.IdempotencyRecord{}, false, fmt.Errorf("sqlstore: cached idempotency store is not configured")
	}
	cacheKey, err := IdempotencyCacheKey(eventID)
	if err != nil {
		return core.IdempotencyRecord{}, false, err
	}

	record, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.IdempotencyRecord, error) {
		fetched, found, fetchErr := s.base.Get(ctx, eventID)
		if fetchErr != nil {
			return core.IdempotencyRecord{}, fetchErr
		}
		if !found {
			// An empty record caches the miss; MarkProcessed evicts it.
			return core.IdempotencyRecord{}, nil
		}
		return fetched, nil
	})
	if err != nil {
		return core.IdempotencyRecord{}, false, err
	}
	if strings.TrimSpace(record.EventID) == "" {
		return core.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *CachedIdempotencyStore) MarkProcessed(ctx context.Context, eventID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached idempotency store is not configured")
	}
	cacheKey, err := IdempotencyCacheKey(eventID)
	if err != nil {
		return err
	}

	if err := s.base.MarkProcessed(ctx, eventID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return err
	}
	return nil
}

var _ core.IdempotencyStore = (*CachedIdempotencyStore)(nil)
