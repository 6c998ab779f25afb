// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package utils holds helpers for command line tooling. Library code never
// retries on its own.
package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/log"
)

// WithRetriesTimeout runs operation with exponential backoff until it
// succeeds, ctx is done or timeout has elapsed.
func WithRetriesTimeout(
	ctx context.Context,
	logger log.Logger,
	operation backoff.Operation,
	timeout time.Duration,
) error {
	expBackOff := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(timeout),
	)
	return retry(ctx, logger, operation, expBackOff)
}

// WithMaxRetries runs operation with exponential backoff at most
// maxRetries+1 times.
func WithMaxRetries(
	ctx context.Context,
	logger log.Logger,
	operation backoff.Operation,
	maxRetries uint64,
) error {
	expBackOff := backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(10*time.Millisecond),
			backoff.WithMaxElapsedTime(0),
		),
		maxRetries,
	)
	return retry(ctx, logger, operation, expBackOff)
}

func retry(ctx context.Context, logger log.Logger, operation backoff.Operation, b backoff.BackOff) error {
	notify := func(err error, next time.Duration) {
		logger.Warn("operation failed, retrying...",
			log.Err(err),
			log.Stringer("retryIn", next),
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}
