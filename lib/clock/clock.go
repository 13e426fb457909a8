// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock supplies the current time. Engine code takes a Clock instead of
// calling time.Now so redemption timestamps are deterministic in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the system time.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
