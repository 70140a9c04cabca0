package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/logger"
	"github.com/feral-file/ff-claims-checker/internal/store"
)

// RetryPolicy configures PersistWithRetry
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  5 * time.Minute,
		Multiplier:      2.0,
	}
}

// PersistWithRetry rewrites the claims of a failed result with exponential backoff.
// Run never calls it; the caller decides whether a persist failure is worth retrying.
func PersistWithRetry(ctx context.Context, st store.ClaimsStore, result *RunResult, policy RetryPolicy) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = policy.MaxElapsedTime
	b.Multiplier = policy.Multiplier
	b.RandomizationFactor = 0.5

	backoffWithContext := backoff.WithContext(b, ctx)

	operation := func() error {
		return st.WriteAll(ctx, result.Contract, result.Claims)
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Claims write failed, retrying",
			zap.String("contract", result.Contract),
			zap.Error(err),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, backoffWithContext, notifyOnError); err != nil {
		return domain.NewStageError(result.Contract, domain.StagePersist,
			fmt.Errorf("failed after %d attempts: %w", attemptCount+1, err))
	}

	result.Written = true
	result.Err = nil

	if attemptCount > 0 {
		logger.InfoCtx(ctx, "Claims write succeeded after retries",
			zap.String("contract", result.Contract),
			zap.Int("total_attempts", attemptCount+1),
		)
	}

	return nil
}
