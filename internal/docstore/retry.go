package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farid/spf-sync/internal/util"
)

// RetryPolicy holds retry configuration for store calls
type RetryPolicy struct {
	MaxAttempts int           // Maximum number of attempts (1 = no retry)
	InitialWait time.Duration // Initial wait, doubled each retry
	MaxWait     time.Duration // Cap on the wait between attempts
}

// DefaultRetryPolicy returns the default policy for store calls
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

// retryable reports whether a store error is worth retrying. Only
// transport-level failures are; NotFound and PermissionDenied never
// resolve by waiting.
func retryable(err error) bool {
	return errors.Is(err, ErrTransport)
}

// withRetry executes a store call under the policy with exponential backoff
func withRetry[T any](ctx context.Context, p *RetryPolicy, name string, call func() (T, error)) (T, error) {
	var result T
	var err error

	if p == nil {
		p = DefaultRetryPolicy()
	}

	wait := p.InitialWait
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err = call()
		if err == nil {
			if attempt > 1 {
				util.DebugLog("Retry: %s succeeded on attempt %d/%d", name, attempt, p.MaxAttempts)
			}
			return result, nil
		}

		if !retryable(err) {
			return result, err
		}

		if attempt == p.MaxAttempts {
			util.WarnLog("Retry: %s failed after %d attempts: %v", name, p.MaxAttempts, err)
			return result, fmt.Errorf("max retries exceeded (%d attempts): %w", p.MaxAttempts, err)
		}

		util.DebugLog("Retry: %s failed (attempt %d/%d), retrying in %v: %v",
			name, attempt, p.MaxAttempts, wait, err)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}

		wait *= 2
		if wait > p.MaxWait {
			wait = p.MaxWait
		}
	}

	return result, err
}

// Retrying wraps a Store with the injected retry policy. Only transient
// transport errors are retried; everything else passes through.
type Retrying struct {
	inner  Store
	policy *RetryPolicy
}

// WithRetry wraps a store with a retry policy. A nil policy uses the default.
func WithRetry(inner Store, policy *RetryPolicy) *Retrying {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) GetAll(ctx context.Context, collection string) ([]Document, error) {
	return withRetry(ctx, r.policy, fmt.Sprintf("getAll(%s)", collection), func() ([]Document, error) {
		return r.inner.GetAll(ctx, collection)
	})
}

func (r *Retrying) Get(ctx context.Context, collection, id string) (Document, error) {
	return withRetry(ctx, r.policy, fmt.Sprintf("get(%s/%s)", collection, id), func() (Document, error) {
		return r.inner.Get(ctx, collection, id)
	})
}

func (r *Retrying) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := withRetry(ctx, r.policy, fmt.Sprintf("update(%s/%s)", collection, id), func() (struct{}, error) {
		return struct{}{}, r.inner.Update(ctx, collection, id, fields)
	})
	return err
}

func (r *Retrying) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	return withRetry(ctx, r.policy, fmt.Sprintf("create(%s)", collection), func() (string, error) {
		return r.inner.Create(ctx, collection, fields)
	})
}

func (r *Retrying) BatchWrite(ctx context.Context, ops []Operation) error {
	_, err := withRetry(ctx, r.policy, fmt.Sprintf("batchWrite(%d ops)", len(ops)), func() (struct{}, error) {
		return struct{}{}, r.inner.BatchWrite(ctx, ops)
	})
	return err
}
