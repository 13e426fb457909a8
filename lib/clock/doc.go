// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the current time for testability.
//
// A contract call never sleeps, schedules, or ticks — the only time
// operation in the module is stamping a redemption receipt — so the
// interface is Now and nothing else. Production hosts inject Real();
// tests inject a Fake with deterministic control.
package clock
