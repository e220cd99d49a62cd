package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestClassify_TransientIndicators(t *testing.T) {
	transient := []error{
		errors.New("ThrottlingException: rate exceeded"),
		errors.New("ProvisionedThroughputExceededException"),
		errors.New("upstream returned ServiceUnavailable"),
		errors.New("InternalServerError from payment provider"),
		errors.New("RequestTimeout while posting"),
		errors.New("read tcp 10.0.0.2:443: connection reset by peer"),
		errors.New("dial tcp: connection refused"),
		errors.New("lookup api.stripe.com: no such host"),
		errors.New("ETIMEDOUT"),
	}
	for _, err := range transient {
		if got := Classify(err); !got.Transient {
			t.Fatalf("expected %q to classify transient, got %+v", err, got)
		}
	}
}

func TestClassify_PermanentFailures(t *testing.T) {
	permanent := []error{
		errors.New("ValidationException: amount must be positive"),
		errors.New("malformed payload"),
		errors.New("unknown event schema"),
	}
	for _, err := range permanent {
		if got := Classify(err); got.Transient {
			t.Fatalf("expected %q to classify permanent, got %+v", err, got)
		}
	}
}

func TestClassify_RichErrors(t *testing.T) {
	serverErr := goerrors.New("upstream exploded", goerrors.CategoryInternal).WithCode(503)
	if got := Classify(serverErr); !got.Transient {
		t.Fatalf("expected 5xx rich error to classify transient, got %+v", got)
	}

	rateLimited := goerrors.New("slow down", goerrors.CategoryRateLimit)
	if got := Classify(rateLimited); !got.Transient {
		t.Fatalf("expected rate-limit category to classify transient, got %+v", got)
	}

	// External failures are transient even without a 5xx code or a message
	// the indicator list would match.
	external := goerrors.New("upstream dropped the connection midstream", goerrors.CategoryExternal)
	if got := Classify(external); !got.Transient {
		t.Fatalf("expected external category to classify transient, got %+v", got)
	}

	retryable := goerrors.NewRetryable("provider busy", goerrors.CategoryOperation).WithRetryable(true)
	if got := Classify(retryable); !got.Transient {
		t.Fatalf("expected self-declared retryable error to classify transient, got %+v", got)
	}

	badInput := goerrors.New("tenant id is required", goerrors.CategoryBadInput)
	if got := Classify(badInput); got.Transient {
		t.Fatalf("expected bad-input category to classify permanent, got %+v", got)
	}

	wrapped := fmt.Errorf("handling event: %w", badInput)
	if got := Classify(wrapped); got.Transient {
		t.Fatalf("expected wrapped bad-input to classify permanent, got %+v", got)
	}
}

func TestClassify_IsTotal(t *testing.T) {
	if got := Classify(nil); got.Transient {
		t.Fatalf("expected nil error to classify permanent, got %+v", got)
	}
	if got := Classify(context.DeadlineExceeded); !got.Transient {
		t.Fatalf("expected deadline exceeded to classify transient, got %+v", got)
	}
}
