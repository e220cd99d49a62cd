package query

import (
	"context"
	"fmt"

	"github.com/goliatone/go-webhooks/core"
)

type DLQEntryReader interface {
	ListDLQEntries(ctx context.Context, status string, limit int) []core.DLQEntry
	GetDLQEntry(ctx context.Context, entryID string) (core.DLQEntry, bool, error)
}

type ListDLQEntriesQuery struct {
	reader DLQEntryReader
}

func NewListDLQEntriesQuery(reader DLQEntryReader) *ListDLQEntriesQuery {
	return &ListDLQEntriesQuery{reader: reader}
}

func (q *ListDLQEntriesQuery) Query(ctx context.Context, msg ListDLQEntriesMessage) ([]core.DLQEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: dlq entry reader is required")
	}
	return q.reader.ListDLQEntries(ctx, msg.Status, msg.Limit), nil
}

type GetDLQEntryQuery struct {
	reader DLQEntryReader
}

func NewGetDLQEntryQuery(reader DLQEntryReader) *GetDLQEntryQuery {
	return &GetDLQEntryQuery{reader: reader}
}

func (q *GetDLQEntryQuery) Query(ctx context.Context, msg GetDLQEntryMessage) (core.DLQEntry, error) {
	if q == nil || q.reader == nil {
		return core.DLQEntry{}, queryDependencyError("query: dlq entry reader is required")
	}
	entry, found, err := q.reader.GetDLQEntry(ctx, msg.EntryID)
	if err != nil {
		return core.DLQEntry{}, err
	}
	if !found {
		return core.DLQEntry{}, queryNotFoundError(fmt.Sprintf("query: dlq entry %q not found", msg.EntryID))
	}
	return entry, nil
}
