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

// DLQStore persists dead-letter entries. Status transitions are enforced in
// SQL with conditional updates, so concurrent operators racing on the same
// entry see found=false instead of clobbering each other.
type DLQStore struct {
	db   *bun.DB
	repo repository.Repository[*dlqEntryRecord]
}

func NewDLQStore(db *bun.DB) (*DLQStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*dlqEntryRecord](db, dlqEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid dlq repository wiring: %w", err)
		}
	}
	return &DLQStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *DLQStore) Create(ctx context.Context, entry core.DLQEntry) (core.DLQEntry, error) {
	if s == nil || s.db == nil {
		return core.DLQEntry{}, fmt.Errorf("sqlstore: dlq store is not configured")
	}
	if err := entry.Validate(); err != nil {
		return core.DLQEntry{}, err
	}
	record := dlqEntryFromDomain(entry)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.DLQEntry{}, fmt.Errorf("sqlstore: dlq entry %q already exists", entry.ID)
		}
		return core.DLQEntry{}, err
	}
	return dlqEntryToDomain(record), nil
}

func (s *DLQStore) Get(ctx context.Context, id string) (core.DLQEntry, bool, error) {
	if s == nil || s.db == nil {
		return core.DLQEntry{}, false, fmt.Errorf("sqlstore: dlq store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DLQEntry{}, false, fmt.Errorf("sqlstore: dlq entry id is required")
	}
	record := &dlqEntryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.DLQEntry{}, false, nil
		}
		return core.DLQEntry{}, false, err
	}
	return dlqEntryToDomain(record), true, nil
}

func (s *DLQStore) List(ctx context.Context, status string, limit int) ([]core.DLQEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: dlq store is not configured")
	}
	status = strings.TrimSpace(strings.ToLower(status))
	if limit <= 0 {
		limit = core.DefaultListLimit
	}

	records := []*dlqEntryRecord{}
	query := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.last_failed_at DESC").
		Limit(limit)
	if status != "" {
		query = query.Where("?TableAlias.status = ?", status)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	entries := make([]core.DLQEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, dlqEntryToDomain(record))
	}
	return entries, nil
}

func (s *DLQStore) MarkPendingRetry(ctx context.Context, id string) (core.DLQEntry, bool, error) {
	if s == nil || s.db == nil {
		return core.DLQEntry{}, false, fmt.Errorf("sqlstore: dlq store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DLQEntry{}, false, fmt.Errorf("sqlstore: dlq entry id is required")
	}

	now := time.Now().UTC()
	result, err := s.db.NewUpdate().
		Model((*dlqEntryRecord)(nil)).
		Set("status = ?", core.DLQStatusPendingRetry).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", core.DLQStatusExhausted).
		Exec(ctx)
	if err != nil {
		return core.DLQEntry{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return core.DLQEntry{}, false, err
	}
	if affected == 0 {
		return core.DLQEntry{}, false, nil
	}
	return s.Get(ctx, id)
}

func (s *DLQStore) MarkResolved(ctx context.Context, id string, resolution string, resolvedAt time.Time) (core.DLQEntry, bool, error) {
	if s == nil || s.db == nil {
		return core.DLQEntry{}, false, fmt.Errorf("sqlstore: dlq store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DLQEntry{}, false, fmt.Errorf("sqlstore: dlq entry id is required")
	}

	resolvedAt = resolvedAt.UTC()
	result, err := s.db.NewUpdate().
		Model((*dlqEntryRecord)(nil)).
		Set("status = ?", core.DLQStatusManuallyResolved).
		Set("resolution = ?", resolution).
		Set("resolved_at = ?", resolvedAt).
		Set("updated_at = ?", resolvedAt).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]string{core.DLQStatusExhausted, core.DLQStatusPendingRetry})).
		Exec(ctx)
	if err != nil {
		return core.DLQEntry{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return core.DLQEntry{}, false, err
	}
	if affected == 0 {
		return core.DLQEntry{}, false, nil
	}
	return s.Get(ctx, id)
}

func (s *DLQStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: dlq store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*dlqEntryRecord)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func dlqEntryFromDomain(entry core.DLQEntry) *dlqEntryRecord {
	now := time.Now().UTC()
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	record := &dlqEntryRecord{
		ID:                strings.TrimSpace(entry.ID),
		EventID:           entry.EventID,
		EventType:         entry.EventType,
		Payload:           core.ClonePayload(entry.Payload),
		TenantID:          entry.TenantID,
		ActorID:           entry.ActorID,
		FailureReason:     entry.FailureReason,
		FailureStack:      entry.FailureStack,
		RetryCount:        entry.RetryCount,
		MaxRetries:        entry.MaxRetries,
		FirstFailedAt:     entry.FirstFailedAt.UTC(),
		LastFailedAt:      entry.LastFailedAt.UTC(),
		Status:            entry.Status,
		ProcessingHistory: core.CloneHistory(entry.History),
		Resolution:        entry.Resolution,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		ExpiresAt:         entry.ExpiresAt.UTC(),
	}
	if entry.ResolvedAt != nil {
		resolvedAt := entry.ResolvedAt.UTC()
		record.ResolvedAt = &resolvedAt
	}
	return record
}

func dlqEntryToDomain(record *dlqEntryRecord) core.DLQEntry {
	if record == nil {
		return core.DLQEntry{}
	}
	entry := core.DLQEntry{
		ID:            record.ID,
		EventID:       record.EventID,
		EventType:     record.EventType,
		Payload:       core.ClonePayload(record.Payload),
		TenantID:      record.TenantID,
		ActorID:       record.ActorID,
		FailureReason: record.FailureReason,
		FailureStack:  record.FailureStack,
		RetryCount:    record.RetryCount,
		MaxRetries:    record.MaxRetries,
		FirstFailedAt: record.FirstFailedAt,
		LastFailedAt:  record.LastFailedAt,
		Status:        record.Status,
		History:       core.CloneHistory(record.ProcessingHistory),
		Resolution:    record.Resolution,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
		ExpiresAt:     record.ExpiresAt,
	}
	if record.ResolvedAt != nil {
		resolvedAt := *record.ResolvedAt
		entry.ResolvedAt = &resolvedAt
	}
	return entry
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
