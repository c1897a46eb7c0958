// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"simcore/pkg/config"
	"simcore/pkg/simerr"
)

// Feature: ORCHESTRATOR_RETRY
// Spec: spec/core/orchestrator.md (§4.8 "transient transport errors ... may
// be retried with bounded attempts and exponential backoff")

// withRetry runs op up to cfg.MaxAttempts times, backing off exponentially
// (with jitter) between attempts, for errors categorized as KindTransport.
// Any other error kind is returned immediately without retrying, and
// exhausting all attempts returns the last error unwrapped (spec.md §4.8:
// "exhaustion is fatal").
func withRetry(ctx context.Context, cfg config.RetryConfig, op func() error) error {
	var lastErr error
	delay := cfg.BaseDelay

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !simerr.Is(lastErr, simerr.KindTransport) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		jittered := time.Duration(float64(delay) * (0.5 + rand.Float64()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
