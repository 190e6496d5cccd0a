package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"heist/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const (
	initialRetryDelay = 25 * time.Millisecond
	maxRetryDelay     = 800 * time.Millisecond
)

// txRunner executes a unit of work under a deadline, retrying conflicts and
// transient storage failures with a doubling backoff.
type txRunner struct {
	uowFactory  UnitOfWorkFactory
	timeout     time.Duration
	maxAttempts int
}

func newTxRunner(uowFactory UnitOfWorkFactory, timeout time.Duration, maxAttempts int) *txRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &txRunner{
		uowFactory:  uowFactory,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Run executes fn in a read-write unit of work and commits it
func (r *txRunner) Run(ctx context.Context, operation string, fn func(ctx context.Context, uow UnitOfWork) error) error {
	return r.run(ctx, operation, false, fn)
}

// Read executes fn in a read-only unit of work
func (r *txRunner) Read(ctx context.Context, operation string, fn func(ctx context.Context, uow UnitOfWork) error) error {
	return r.run(ctx, operation, true, fn)
}

func (r *txRunner) run(ctx context.Context, operation string, readOnly bool, fn func(ctx context.Context, uow UnitOfWork) error) error {
	opCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	delay := initialRetryDelay
	for attempt := 1; ; attempt++ {
		err := r.attempt(opCtx, readOnly, fn)
		if err == nil {
			metrics.ObserveOperation(operation, "ok", time.Since(start))
			return nil
		}

		classified := classifyStorageError(opCtx, err)
		if !shouldRetry(classified) || attempt >= r.maxAttempts {
			metrics.ObserveOperation(operation, KindOf(classified).String(), time.Since(start))
			if !IsBusinessError(classified) {
				log.WithFields(log.Fields{
					"operation": operation,
					"attempt":   attempt,
					"error":     classified,
				}).Error("Storage operation failed")
			}
			return classified
		}

		metrics.StorageRetries.WithLabelValues(operation).Inc()
		log.WithFields(log.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay,
			"error":     err,
		}).Warn("Retrying storage operation")

		if err := sleepWithContext(opCtx, delay); err != nil {
			classified = classifyStorageError(opCtx, err)
			metrics.ObserveOperation(operation, KindOf(classified).String(), time.Since(start))
			return classified
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}
}

func (r *txRunner) attempt(ctx context.Context, readOnly bool, fn func(ctx context.Context, uow UnitOfWork) error) error {
	var uow UnitOfWork
	if readOnly {
		uow = r.uowFactory.CreateReadOnly()
	} else {
		uow = r.uowFactory.Create()
	}

	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := fn(ctx, uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// classifyStorageError maps raw storage errors onto the service taxonomy.
// Service errors pass through unchanged.
func classifyStorageError(ctx context.Context, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return storageError(fmt.Errorf("operation timed out (%v): %w", err, context.DeadlineExceeded), true)
	}
	if errors.Is(err, context.Canceled) {
		return storageError(err, false)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "23505":
			// serialization_failure, deadlock_detected, lock_not_available, unique_violation
			return conflictError(err)
		case "23514":
			// check_violation: a balance guard rejected the write
			return &Error{Kind: KindInsufficientFunds, Message: "balance constraint rejected the update", Err: err}
		}
		if len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "57") {
			// connection_exception, operator_intervention
			return storageError(err, true)
		}
		return storageError(err, false)
	}

	return storageError(err, true)
}

// shouldRetry decides whether the runner itself retries. Timeouts are
// retryable for the actor but never retried here since the deadline is spent.
func shouldRetry(err error) bool {
	switch KindOf(err) {
	case KindConcurrencyConflict:
		return true
	case KindStorage:
		return Retryable(err) && !errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

// IsTimeout reports whether err is a storage deadline failure
func IsTimeout(err error) bool {
	return KindOf(err) == KindStorage && errors.Is(err, context.DeadlineExceeded)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
