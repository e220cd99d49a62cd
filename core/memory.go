package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryIdempotencyStore keeps processed-event markers in process memory.
// Default for tests and single-node setups; production deployments swap in
// the SQL-backed store.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: map[string]IdempotencyRecord{},
	}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, eventID string) (IdempotencyRecord, bool, error) {
	if s == nil {
		return IdempotencyRecord{}, false, fmt.Errorf("core: idempotency store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return IdempotencyRecord{}, false, fmt.Errorf("core: event id is required")
	}

	s.mu.Lock()
	record, ok := s.records[eventID]
	s.mu.Unlock()

	if !ok {
		return IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string) error {
	if s == nil {
		return fmt.Errorf("core: idempotency store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("core: event id is required")
	}

	now := time.Now().UTC()
	s.mu.Lock()
	// Re-marking is a no-op: the original timestamp wins.
	if _, ok := s.records[eventID]; !ok {
		s.records[eventID] = IdempotencyRecord{
			EventID:     eventID,
			Status:      IdempotencyStatusProcessed,
			ProcessedAt: now,
		}
	}
	s.mu.Unlock()

	return nil
}

// MemoryDLQStore keeps dead-letter entries in process memory, newest failure
// first on listing. Same role as MemoryIdempotencyStore: tests and
// single-node setups.
type MemoryDLQStore struct {
	mu      sync.Mutex
	entries map[string]DLQEntry
	order   []string
}

func NewMemoryDLQStore() *MemoryDLQStore {
	return &MemoryDLQStore{
		entries: map[string]DLQEntry{},
	}
}

func (s *MemoryDLQStore) Create(_ context.Context, entry DLQEntry) (DLQEntry, error) {
	if s == nil {
		return DLQEntry{}, fmt.Errorf("core: dlq store is not configured")
	}
	if err := entry.Validate(); err != nil {
		return DLQEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; exists {
		return DLQEntry{}, fmt.Errorf("core: dlq entry %q already exists", entry.ID)
	}
	s.entries[entry.ID] = cloneDLQEntry(entry)
	s.order = append(s.order, entry.ID)
	return cloneDLQEntry(entry), nil
}

func (s *MemoryDLQStore) Get(_ context.Context, id string) (DLQEntry, bool, error) {
	if s == nil {
		return DLQEntry{}, false, fmt.Errorf("core: dlq store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return DLQEntry{}, false, fmt.Errorf("core: dlq entry id is required")
	}

	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()

	if !ok {
		return DLQEntry{}, false, nil
	}
	return cloneDLQEntry(entry), true, nil
}

func (s *MemoryDLQStore) List(_ context.Context, status string, limit int) ([]DLQEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("core: dlq store is not configured")
	}
	status = strings.TrimSpace(strings.ToLower(status))
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]DLQEntry, 0, limit)
	for _, id := range s.order {
		entry := s.entries[id]
		if status != "" && entry.Status != status {
			continue
		}
		matched = append(matched, cloneDLQEntry(entry))
	}
	// Most recent failures surface first for operators.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryDLQStore) MarkPendingRetry(_ context.Context, id string) (DLQEntry, bool, error) {
	if s == nil {
		return DLQEntry{}, false, fmt.Errorf("core: dlq store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return DLQEntry{}, false, fmt.Errorf("core: dlq entry id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || entry.Status != DLQStatusExhausted {
		return DLQEntry{}, false, nil
	}
	entry.Status = DLQStatusPendingRetry
	entry.UpdatedAt = time.Now().UTC()
	s.entries[id] = entry
	return cloneDLQEntry(entry), true, nil
}

func (s *MemoryDLQStore) MarkResolved(_ context.Context, id string, resolution string, resolvedAt time.Time) (DLQEntry, bool, error) {
	if s == nil {
		return DLQEntry{}, false, fmt.Errorf("core: dlq store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return DLQEntry{}, false, fmt.Errorf("core: dlq entry id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || !CanTransitionDLQStatus(entry.Status, DLQStatusManuallyResolved) {
		return DLQEntry{}, false, nil
	}
	resolvedAt = resolvedAt.UTC()
	entry.Status = DLQStatusManuallyResolved
	entry.Resolution = resolution
	entry.ResolvedAt = &resolvedAt
	entry.UpdatedAt = resolvedAt
	s.entries[id] = entry
	return cloneDLQEntry(entry), true, nil
}

func (s *MemoryDLQStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: dlq store is not configured")
	}
	now = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	kept := s.order[:0]
	for _, id := range s.order {
		entry := s.entries[id]
		if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(now) {
			delete(s.entries, id)
			purged++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return purged, nil
}

func cloneDLQEntry(entry DLQEntry) DLQEntry {
	cloned := entry
	cloned.Payload = ClonePayload(entry.Payload)
	cloned.History = CloneHistory(entry.History)
	if entry.ResolvedAt != nil {
		resolvedAt := *entry.ResolvedAt
		cloned.ResolvedAt = &resolvedAt
	}
	return cloned
}

var (
	_ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
	_ DLQStore         = (*MemoryDLQStore)(nil)
)
