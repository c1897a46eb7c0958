// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package orchestrator

import "time"

// newTicker wraps time.NewTicker for the poll-interval fallback in Run,
// substituting one second when d is not positive.
func newTicker(d time.Duration) *time.Ticker {
	if d <= 0 {
		d = time.Second
	}
	return time.NewTicker(d)
}
