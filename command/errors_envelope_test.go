package command

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-webhooks/core"
)

func TestNilCommand_ReturnsRichDependencyError(t *testing.T) {
	var cmd *ProcessEventCommand
	err := cmd.Execute(context.Background(), ProcessEventMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 code, got %d", rich.Code)
	}
	if rich.TextCode != core.WebhookErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.WebhookErrorInternal, rich.TextCode)
	}
}

func TestCommandInvalidInputError_Envelope(t *testing.T) {
	err := commandInvalidInputError("command: entry id is required")

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", rich.Category)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 code, got %d", rich.Code)
	}
	if rich.TextCode != core.WebhookErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.WebhookErrorBadInput, rich.TextCode)
	}
}
