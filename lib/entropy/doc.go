// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package entropy supplies cryptographically secure random bytes to the
// issuance engine.
//
// The host's trusted execution environment provides one 32-byte hardware
// entropy seed per contract call. A ChaCha20 keystream expands that seed
// into as many bytes as the call needs: 32 for an issuer key seed, 32 per
// ticket nonce. Expansion is deterministic given the seed, so a call
// re-executed with the same host seed produces the same state transition —
// a requirement of transactional re-execution.
//
// The seed must come from the enclave's hardware randomness, never from
// chain-visible values such as block height, time, or hash. Those are
// observable and influenceable by other participants, and predictable
// nonces would let an observer link ticket identifiers to issuance order.
package entropy
