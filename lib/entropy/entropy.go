// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package entropy

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// SeedSize is the size in bytes of the host entropy seed, matching the
// ChaCha20 key size.
const SeedSize = chacha20.KeySize // 32 bytes

// ErrUnavailable indicates the host environment could not supply an
// entropy seed for this call. It is fatal for the enclosing call: no
// partial issuance happens on degraded randomness.
var ErrUnavailable = errors.New("entropy: host entropy unavailable")

// Source supplies random bytes.
type Source interface {
	// Bytes returns n fresh random bytes, never reusing output.
	Bytes(n int) ([]byte, error)
}

// SeedFunc is the host entropy feed: one hardware-random seed per
// contract call.
type SeedFunc func() ([SeedSize]byte, error)

// NewSource pulls one seed from the host feed and returns a Source that
// expands it through a ChaCha20 keystream. Returns an error wrapping
// ErrUnavailable if the host cannot supply a seed.
func NewSource(seed SeedFunc) (Source, error) {
	if seed == nil {
		return nil, fmt.Errorf("%w: no entropy feed configured", ErrUnavailable)
	}
	key, err := seed()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return newStream(key)
}

// stream expands a single seed into a random byte sequence via the
// ChaCha20 keystream. Each Bytes call consumes fresh keystream.
type stream struct {
	cipher *chacha20.Cipher
}

func newStream(key [SeedSize]byte) (*stream, error) {
	// Fixed zero nonce: each seed is used for exactly one keystream,
	// so key/nonce pairs never repeat.
	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("entropy: initializing keystream: %w", err)
	}
	return &stream{cipher: cipher}, nil
}

// Bytes returns the next n bytes of keystream.
func (s *stream) Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("entropy: byte count must be positive, got %d", n)
	}
	output := make([]byte, n)
	s.cipher.XORKeyStream(output, output)
	return output, nil
}

// Fixed is a deterministic Source for tests: it expands a caller-chosen
// seed with the same keystream construction as the host-backed source.
func Fixed(seed [SeedSize]byte) Source {
	source, err := newStream(seed)
	if err != nil {
		// NewUnauthenticatedCipher only fails on bad key/nonce sizes,
		// which the fixed-size arguments rule out.
		panic("entropy: fixed source initialization failed: " + err.Error())
	}
	return source
}
