package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WebhookErrorBadInput          = "WEBHOOK_BAD_INPUT"
	WebhookErrorEntryNotFound     = "WEBHOOK_ENTRY_NOT_FOUND"
	WebhookErrorInvalidTransition = "WEBHOOK_INVALID_TRANSITION"
	WebhookErrorStoreFailure      = "WEBHOOK_STORE_FAILURE"
	WebhookErrorRetryExhausted    = "WEBHOOK_RETRY_EXHAUSTED"
	WebhookErrorPermanentFailure  = "WEBHOOK_PERMANENT_FAILURE"
	WebhookErrorInternal          = "WEBHOOK_INTERNAL_ERROR"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

// DefaultErrorMapper normalizes arbitrary errors into the module's envelope:
// category, HTTP-style code, and text code.
func DefaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newWebhookError(err.Error(), goerrors.CategoryNotFound, WebhookErrorEntryNotFound)
	case strings.Contains(msg, "transition"), strings.Contains(msg, "already resolved"):
		return newWebhookError(err.Error(), goerrors.CategoryConflict, WebhookErrorInvalidTransition)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newWebhookError(err.Error(), goerrors.CategoryRateLimit, WebhookErrorStoreFailure)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newWebhookError(err.Error(), goerrors.CategoryBadInput, WebhookErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWebhookErrorEnvelope(mapped)
}

func newWebhookError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureWebhookErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureWebhookErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = webhookHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWebhookTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWebhookTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return WebhookErrorBadInput
	case goerrors.CategoryNotFound:
		return WebhookErrorEntryNotFound
	case goerrors.CategoryConflict:
		return WebhookErrorInvalidTransition
	case goerrors.CategoryRateLimit:
		return WebhookErrorStoreFailure
	default:
		return WebhookErrorInternal
	}
}

func webhookHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
