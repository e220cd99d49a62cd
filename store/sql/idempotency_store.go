package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-webhooks/core"
)

// IdempotencyStore persists processed-event markers keyed by event id. The
// table's primary key makes MarkProcessed a conditional insert: the first
// writer wins and later writers see a unique violation, which is treated as
// already marked rather than an error.
type IdempotencyStore struct {
	db   *bun.DB
	repo repository.Repository[*idempotencyKeyRecord]
}

func NewIdempotencyStore(db *bun.DB) (*IdempotencyStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*idempotencyKeyRecord](db, idempotencyKeyHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid idempotency repository wiring: %w", err)
		}
	}
	return &IdempotencyStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *IdempotencyStore) Get(ctx context.Context, eventID string) (core.IdempotencyRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.IdempotencyRecord{}, false, fmt.Errorf("sqlstore: idempotency store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return core.IdempotencyRecord{}, false, fmt.Errorf("sqlstore: event id is required")
	}
	record := &idempotencyKeyRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.IdempotencyRecord{}, false, nil
		}
		return core.IdempotencyRecord{}, false, err
	}
	return idempotencyKeyToDomain(record), true, nil
}

func (s *IdempotencyStore) MarkProcessed(ctx context.Context, eventID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: idempotency store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("sqlstore: event id is required")
	}
	now := time.Now().UTC()
	record := &idempotencyKeyRecord{
		EventID:     eventID,
		Status:      core.IdempotencyStatusProcessed,
		ProcessedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			// Another writer already recorded the event; the original
			// marker and its timestamp stand.
			return nil
		}
		return err
	}
	return nil
}

func idempotencyKeyToDomain(record *idempotencyKeyRecord) core.IdempotencyRecord {
	if record == nil {
		return core.IdempotencyRecord{}
	}
	return core.IdempotencyRecord{
		EventID:     record.EventID,
		Status:      record.Status,
		ProcessedAt: record.ProcessedAt,
	}
}
