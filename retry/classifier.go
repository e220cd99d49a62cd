package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Classification is produced once at the failure boundary so downstream
// consumers never re-inspect loosely typed error values.
type Classification struct {
	Transient bool
	Kind      string
}

// transientIndicators is the fixed allow-list of retry-eligible failure
// signals: provider throttling, availability blips, and network-level codes.
var transientIndicators = []string{
	"provisionedthroughputexceededexception",
	"throughput exceeded",
	"throttlingexception",
	"throttl",
	"too many requests",
	"serviceunavailable",
	"service unavailable",
	"internalservererror",
	"internal server error",
	"requesttimeout",
	"request timeout",
	"timed out",
	"timeout",
	"econnreset",
	"connection reset",
	"econnrefused",
	"connection refused",
	"etimedout",
	"enotfound",
	"no such host",
	"eai_again",
	"temporarily unavailable",
}

// Classify decides whether a failure is transient (worth retrying) or
// permanent. Total: never panics, never returns an error, and treats nil as
// permanent so a confused caller cannot spin on success.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Transient: false, Kind: "none"}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Transient: true, Kind: "timeout"}
	}

	// An error that declares itself retryable outranks category inspection.
	if goerrors.IsRetryableError(err) {
		return Classification{Transient: true, Kind: "retryable"}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		if classification, ok := classifyRich(richErr); ok {
			return classification
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Classification{Transient: true, Kind: "network_timeout"}
	}

	message := strings.ToLower(err.Error())
	for _, indicator := range transientIndicators {
		if strings.Contains(message, indicator) {
			return Classification{Transient: true, Kind: indicatorKind(indicator)}
		}
	}

	return Classification{Transient: false, Kind: "permanent"}
}

func classifyRich(err *goerrors.Error) (Classification, bool) {
	kind := strings.TrimSpace(err.TextCode)
	if kind == "" {
		kind = string(err.Category)
	}

	// HTTP-style 5xx carried on the error always reads as transient.
	if err.Code >= http.StatusInternalServerError {
		return Classification{Transient: true, Kind: kind}, true
	}

	switch err.Category {
	case goerrors.CategoryRateLimit, goerrors.CategoryExternal:
		return Classification{Transient: true, Kind: kind}, true
	case goerrors.CategoryBadInput, goerrors.CategoryValidation,
		goerrors.CategoryNotFound, goerrors.CategoryConflict,
		goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return Classification{Transient: false, Kind: kind}, true
	}
	return Classification{}, false
}

func indicatorKind(indicator string) string {
	switch {
	case strings.Contains(indicator, "throttl"), strings.Contains(indicator, "throughput"),
		strings.Contains(indicator, "too many requests"):
		return "throttling"
	case strings.Contains(indicator, "unavailable"):
		return "service_unavailable"
	case strings.Contains(indicator, "internal"):
		return "server_error"
	case strings.Contains(indicator, "time"):
		return "timeout"
	case strings.Contains(indicator, "host"), strings.Contains(indicator, "enotfound"),
		strings.Contains(indicator, "eai_again"):
		return "dns_failure"
	case strings.Contains(indicator, "conn"):
		return "connection_failure"
	default:
		return "transient"
	}
}
