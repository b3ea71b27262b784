package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dgallion1/pdftojson/internal/extract"
)

func TestClassifier_AlwaysFailingUsesThreeAttempts(t *testing.T) {
	svc := &fakeCompleter{fn: func(int, string) (string, error) {
		return "", errors.New("connection refused")
	}}
	c := NewClassifier(svc, 3, 0)

	_, err := c.Classify(context.Background(), discardLogger(), "prompt")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if svc.Calls() != 3 {
		t.Errorf("expected exactly 3 calls, got %d", svc.Calls())
	}
}

func TestClassifier_SuccessOnSecondAttempt(t *testing.T) {
	svc := &fakeCompleter{fn: func(call int, _ string) (string, error) {
		if call == 1 {
			return "", &extract.RetryableError{StatusCode: 503, Message: "busy"}
		}
		return "ok", nil
	}}
	c := NewClassifier(svc, 3, 0)

	reply, err := c.Classify(context.Background(), discardLogger(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "ok" {
		t.Errorf("expected reply ok, got %q", reply)
	}
	if svc.Calls() != 2 {
		t.Errorf("expected exactly 2 calls, got %d", svc.Calls())
	}
}

func TestClassifier_FirstSuccessMakesOneCall(t *testing.T) {
	svc := &fakeCompleter{fn: always("ok")}
	if _, err := NewClassifier(svc, 3, time.Hour).Classify(context.Background(), discardLogger(), "p"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", svc.Calls())
	}
}

func TestClassifier_FixedDelayBetweenAttempts(t *testing.T) {
	svc := &fakeCompleter{fn: func(int, string) (string, error) {
		return "", errors.New("fail")
	}}
	delay := 30 * time.Millisecond
	start := time.Now()
	_, _ = NewClassifier(svc, 3, delay).Classify(context.Background(), discardLogger(), "p")
	elapsed := time.Since(start)

	// Two waits between three attempts, none after the last.
	if elapsed < 2*delay {
		t.Errorf("expected at least %v between attempts, took %v", 2*delay, elapsed)
	}
	if elapsed > 2*delay+time.Second {
		t.Errorf("expected no wait after the last attempt, took %v", elapsed)
	}
}

func TestClassifier_NonPositiveAttemptsMeansOne(t *testing.T) {
	svc := &fakeCompleter{fn: func(int, string) (string, error) {
		return "", errors.New("fail")
	}}
	_, _ = NewClassifier(svc, 0, 0).Classify(context.Background(), discardLogger(), "p")
	if svc.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", svc.Calls())
	}
}

func TestClassifier_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeCompleter{fn: func(int, string) (string, error) {
		cancel()
		return "", errors.New("fail")
	}}
	_, err := NewClassifier(svc, 3, time.Hour).Classify(ctx, discardLogger(), "p")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("cancellation must not be reported as exhaustion")
	}
	if svc.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", svc.Calls())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("wrapped: %w", &extract.RetryableError{StatusCode: 429})) {
		t.Error("expected wrapped RetryableError to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error not to be retryable")
	}
}
