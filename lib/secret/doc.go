// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for issuer signing keys and
// other sensitive material handled during a contract call.
//
// Buffer allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped.
//
// A batch's signing key exists in process memory only for the duration of
// the call that uses it — the issuance engine generates or unseals it,
// signs, and closes the buffer before returning. Keeping that window
// outside the Go heap means the garbage collector never copies or
// relocates the key, so closing the buffer really does destroy the last
// in-memory copy.
package secret
