package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-webhooks/core"
)

type stubIdempotencyStore struct {
	records map[string]core.IdempotencyRecord
	err     error
	marked  []string
}

func (s *stubIdempotencyStore) Get(_ context.Context, eventID string) (core.IdempotencyRecord, bool, error) {
	if s.err != nil {
		return core.IdempotencyRecord{}, false, s.err
	}
	record, ok := s.records[eventID]
	return record, ok, nil
}

func (s *stubIdempotencyStore) MarkProcessed(_ context.Context, eventID string) error {
	s.marked = append(s.marked, eventID)
	return nil
}

func TestGuard_UnknownEventIsNotProcessed(t *testing.T) {
	guard := NewGuard(&stubIdempotencyStore{records: map[string]core.IdempotencyRecord{}}, nil)
	if guard.IsProcessed(context.Background(), "evt_unknown") {
		t.Fatalf("expected unknown event to be unprocessed")
	}
}

func TestGuard_ProcessedRecordShortCircuits(t *testing.T) {
	store := &stubIdempotencyStore{
		records: map[string]core.IdempotencyRecord{
			"evt_done":    {EventID: "evt_done", Status: core.IdempotencyStatusProcessed},
			"evt_pending": {EventID: "evt_pending", Status: "received"},
		},
	}
	guard := NewGuard(store, nil)

	if !guard.IsProcessed(context.Background(), "evt_done") {
		t.Fatalf("expected processed record to report processed")
	}
	if guard.IsProcessed(context.Background(), "evt_pending") {
		t.Fatalf("expected non-processed status to report unprocessed")
	}
}

func TestGuard_FailsOpenOnStoreError(t *testing.T) {
	logger := &warnCapturingLogger{}
	guard := NewGuard(&stubIdempotencyStore{err: errors.New("store timeout")}, logger)
	if guard.IsProcessed(context.Background(), "evt_1") {
		t.Fatalf("expected store error to fail open as unprocessed")
	}
	if len(logger.warns) != 1 {
		t.Fatalf("expected one warning for the failed lookup, got %d", len(logger.warns))
	}
	if !strings.Contains(logger.warns[0], "idempotency lookup failed") {
		t.Fatalf("unexpected warning message %q", logger.warns[0])
	}
}

var _ glog.Logger = (*warnCapturingLogger)(nil)

type warnCapturingLogger struct {
	warns []string
}

func (l *warnCapturingLogger) Trace(string, ...any) {}
func (l *warnCapturingLogger) Debug(string, ...any) {}
func (l *warnCapturingLogger) Info(string, ...any)  {}
func (l *warnCapturingLogger) Error(string, ...any) {}
func (l *warnCapturingLogger) Fatal(string, ...any) {}

func (l *warnCapturingLogger) Warn(msg string, _ ...any) {
	l.warns = append(l.warns, msg)
}

func (l *warnCapturingLogger) WithContext(context.Context) glog.Logger {
	return l
}

func TestGuard_BlankEventIDIsNotProcessed(t *testing.T) {
	guard := NewGuard(&stubIdempotencyStore{}, nil)
	if guard.IsProcessed(context.Background(), "   ") {
		t.Fatalf("expected blank event id to report unprocessed")
	}
}
