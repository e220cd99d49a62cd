package sqlstore

import "github.com/goliatone/go-webhooks/core"

var (
	_ core.IdempotencyStore       = (*IdempotencyStore)(nil)
	_ core.DLQStore               = (*DLQStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
