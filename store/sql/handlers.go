package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func idempotencyKeyHandlers() repository.ModelHandlers[*idempotencyKeyRecord] {
	return repository.ModelHandlers[*idempotencyKeyRecord]{
		NewRecord: func() *idempotencyKeyRecord {
			return &idempotencyKeyRecord{}
		},
		GetID: func(record *idempotencyKeyRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.EventID)
		},
		SetID: func(record *idempotencyKeyRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.EventID = id.String()
		},
		GetIdentifier: func() string {
			return "event_id"
		},
		GetIdentifierValue: func(record *idempotencyKeyRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.EventID)
		},
	}
}

func dlqEntryHandlers() repository.ModelHandlers[*dlqEntryRecord] {
	return repository.ModelHandlers[*dlqEntryRecord]{
		NewRecord: func() *dlqEntryRecord {
			return &dlqEntryRecord{}
		},
		GetID: func(record *dlqEntryRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *dlqEntryRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *dlqEntryRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
