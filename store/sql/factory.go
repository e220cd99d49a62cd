package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-webhooks/core"
)

// RepositoryFactory builds the SQL-backed store set from a persistence client
// or a raw bun handle. It satisfies core.RepositoryStoreFactory for wiring
// through service options and core.StoreProvider for direct use.
type RepositoryFactory struct {
	db    *bun.DB
	cache repositorycache.CacheService

	idempotencyStore core.IdempotencyStore
	dlqStore         *DLQStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// WithCache layers the read-through cache over the idempotency store built by
// the next BuildStores call. Must be set before stores are initialized.
func (f *RepositoryFactory) WithCache(cacheService repositorycache.CacheService) *RepositoryFactory {
	if f == nil {
		return nil
	}
	f.cache = cacheService
	return f
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.idempotencyStore != nil && f.dlqStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) IdempotencyStore() core.IdempotencyStore {
	if f == nil {
		return nil
	}
	return f.idempotencyStore
}

func (f *RepositoryFactory) DLQStore() core.DLQStore {
	if f == nil || f.dlqStore == nil {
		return nil
	}
	return f.dlqStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	idempotencyStore, err := NewIdempotencyStore(f.db)
	if err != nil {
		return err
	}
	if f.cache != nil {
		cached, cacheErr := NewCachedIdempotencyStore(idempotencyStore, f.cache)
		if cacheErr != nil {
			return cacheErr
		}
		f.idempotencyStore = cached
	} else {
		f.idempotencyStore = idempotencyStore
	}

	dlqStore, err := NewDLQStore(f.db)
	if err != nil {
		return err
	}
	f.dlqStore = dlqStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
