// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"github.com/turnstile-systems/turnstile/lib/clock"
	"github.com/turnstile-systems/turnstile/lib/entropy"
	"github.com/turnstile-systems/turnstile/lib/secret"
)

// Storage is the host's durable key-value store, scoped to this
// contract. Keys and values are opaque bytes; the statestore package
// owns the key layout.
type Storage interface {
	// Get returns the value at key, or found=false if the key is
	// absent. Absence is not an error.
	Get(key []byte) (value []byte, found bool, err error)

	// Set writes value at key, overwriting any existing value.
	Set(key, value []byte) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key []byte) error
}

// Env is everything a single contract call receives from the host. The
// dispatcher builds a fresh Env per call, bound to the host transaction.
type Env struct {
	// Storage is the transactional key-value store.
	Storage Storage

	// Caller is the authenticated address of the message sender, as
	// established by the host's transaction signature verification.
	// Opaque to the contract beyond equality comparison.
	Caller string

	// Entropy is the enclave's hardware entropy feed: one 32-byte
	// seed per call.
	Entropy entropy.SeedFunc

	// EnclaveIdentity returns the enclave's age identity for
	// unsealing batch signing keys held in state. Nil when the host
	// provides no enclave key custody; batches with sealed custody
	// cannot issue tickets on such a host. The caller owns the
	// returned buffer.
	EnclaveIdentity func() (*secret.Buffer, error)

	// Clock supplies redemption timestamps.
	Clock clock.Clock
}
