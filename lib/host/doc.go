// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package host defines the boundary the contract consumes from its
// execution environment: durable key-value storage, the authenticated
// caller address, the enclave entropy feed, and the clock.
//
// The host processes each contract call as an atomic, serializable
// transaction — one call completes fully before the next begins, and a
// failed call commits none of its writes. The engines rely on that
// contract: their check-then-write sequences carry no locks, and any
// error aborts the whole call.
//
// Env is constructed fresh per call by the host dispatcher and threaded
// explicitly through every operation; there is no process-wide state.
// MemHost is the in-memory implementation used by tests, with failure
// injection for the storage and entropy error paths.
package host
