package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dgallion1/pdftojson/internal/extract"
)

// ErrRetriesExhausted is returned when every classification attempt failed.
var ErrRetriesExhausted = errors.New("classification retries exhausted")

// Completer sends one prompt to the classification service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IsRetryable reports whether err is a transient service failure.
func IsRetryable(err error) bool {
	var retryErr *extract.RetryableError
	return errors.As(err, &retryErr)
}

// Classifier calls the classification service with a fixed attempt budget
// and a fixed delay between attempts. Every failure counts against the
// budget, transient or not.
type Classifier struct {
	svc      Completer
	attempts int
	delay    time.Duration
}

func NewClassifier(svc Completer, attempts int, delay time.Duration) *Classifier {
	return &Classifier{
		svc:      svc,
		attempts: max(attempts, 1),
		delay:    delay,
	}
}

// Classify returns the first successful reply for prompt. log should carry
// the page being classified.
func (c *Classifier) Classify(ctx context.Context, log *slog.Logger, prompt string) (string, error) {
	var reply string
	err := retry.Do(
		func() error {
			out, err := c.svc.Complete(ctx, prompt)
			if err != nil {
				return err
			}
			reply = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.attempts)),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("classification attempt failed",
				"attempt", n+1,
				"max_attempts", c.attempts,
				"retryable", IsRetryable(err),
				"error", err,
			)
		}),
	)
	if err == nil {
		return reply, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	log.Warn("skipping page after max retries", "attempts", c.attempts, "error", err)
	return "", fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
}
