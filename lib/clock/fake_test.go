// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeFrozen(t *testing.T) {
	start := time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)
	fake := NewFake(start)

	if !fake.Now().Equal(start) {
		t.Errorf("Now = %v, want %v", fake.Now(), start)
	}
	if !fake.Now().Equal(fake.Now()) {
		t.Error("fake time moved without Advance")
	}
}

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 5, 1, 19, 30, 0, 0, time.UTC)
	fake := NewFake(start)

	fake.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	if !fake.Now().Equal(want) {
		t.Errorf("Now after Advance = %v, want %v", fake.Now(), want)
	}
}

func TestFakeSet(t *testing.T) {
	fake := NewFake(time.Unix(0, 0))
	target := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)

	fake.Set(target)
	if !fake.Now().Equal(target) {
		t.Errorf("Now after Set = %v, want %v", fake.Now(), target)
	}
}

func TestRealMovesForward(t *testing.T) {
	real := Real()
	first := real.Now()
	second := real.Now()
	if second.Before(first) {
		t.Errorf("real clock went backwards: %v then %v", first, second)
	}
}
