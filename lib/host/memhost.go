// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/zeebo/blake3"

	"github.com/turnstile-systems/turnstile/lib/clock"
	"github.com/turnstile-systems/turnstile/lib/entropy"
	"github.com/turnstile-systems/turnstile/lib/secret"
	"github.com/turnstile-systems/turnstile/lib/sealed"
)

// Injected failures for exercising infrastructure error paths.
var (
	errInjectedRead    = errors.New("memhost: injected read failure")
	errInjectedWrite   = errors.New("memhost: injected write failure")
	errInjectedEntropy = errors.New("memhost: injected entropy failure")
)

// MemHost is an in-memory host environment for tests. It plays the role
// the real chain runtime plays in production: map-backed storage, a
// settable caller, a deterministic per-call entropy feed, an optional
// enclave identity, and a fake clock.
//
// MemHost mirrors the production execution model only for the
// single-call usage tests exercise; it provides no cross-call
// transactionality of its own. Write failure injection fails the first
// write of a call, so a failed call observably commits nothing.
type MemHost struct {
	// Caller is the address the next call executes as.
	Caller string

	// Clock is the fake clock handed to every Env.
	Clock *clock.Fake

	// FailReads makes every storage read fail.
	FailReads bool

	// FailWrites makes every storage write fail.
	FailWrites bool

	// FailEntropy makes the entropy feed fail.
	FailEntropy bool

	storage  map[string][]byte
	seed     [entropy.SeedSize]byte
	calls    uint64
	identity *sealed.Identity
}

// NewMemHost returns a MemHost with empty storage, caller "creator",
// and a clock frozen at a fixed instant.
func NewMemHost() *MemHost {
	return &MemHost{
		Caller:  "creator",
		Clock:   clock.NewFake(time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)),
		storage: make(map[string][]byte),
		seed:    [entropy.SeedSize]byte{0x51},
	}
}

// WithEnclaveIdentity generates an enclave age identity for this host
// and returns its recipient key, for tests exercising sealed custody.
func (m *MemHost) WithEnclaveIdentity() (string, error) {
	identity, err := sealed.GenerateIdentity()
	if err != nil {
		return "", err
	}
	m.identity = identity
	return identity.Recipient, nil
}

// Env returns a fresh environment for one contract call, advancing the
// per-call entropy sequence. Matches the production model of one seed
// per call: two calls never see the same seed, while a re-run of the
// same MemHost replays the same sequence deterministically.
func (m *MemHost) Env() *Env {
	m.calls++
	callSeed := m.callSeed(m.calls)

	env := &Env{
		Storage: memStorage{host: m},
		Caller:  m.Caller,
		Clock:   m.Clock,
		Entropy: func() ([entropy.SeedSize]byte, error) {
			if m.FailEntropy {
				return [entropy.SeedSize]byte{}, errInjectedEntropy
			}
			return callSeed, nil
		},
	}
	if m.identity != nil {
		env.EnclaveIdentity = func() (*secret.Buffer, error) {
			return secret.NewFromBytes([]byte(m.identity.Private.String()))
		}
	}
	return env
}

// callSeed derives the entropy seed for the nth call from the base seed.
func (m *MemHost) callSeed(call uint64) [entropy.SeedSize]byte {
	hasher := blake3.New()
	hasher.Write(m.seed[:])
	var callBytes [8]byte
	binary.BigEndian.PutUint64(callBytes[:], call)
	hasher.Write(callBytes[:])

	var out [entropy.SeedSize]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// Snapshot returns a copy of the storage contents, for asserting that a
// failed call committed nothing.
func (m *MemHost) Snapshot() map[string][]byte {
	snapshot := make(map[string][]byte, len(m.storage))
	for key, value := range m.storage {
		copied := make([]byte, len(value))
		copy(copied, value)
		snapshot[key] = copied
	}
	return snapshot
}

// Close releases the enclave identity, if any.
func (m *MemHost) Close() error {
	if m.identity != nil {
		return m.identity.Close()
	}
	return nil
}

type memStorage struct {
	host *MemHost
}

func (s memStorage) Get(key []byte) ([]byte, bool, error) {
	if s.host.FailReads {
		return nil, false, errInjectedRead
	}
	value, found := s.host.storage[string(key)]
	if !found {
		return nil, false, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true, nil
}

func (s memStorage) Set(key, value []byte) error {
	if s.host.FailWrites {
		return errInjectedWrite
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	s.host.storage[string(key)] = copied
	return nil
}

func (s memStorage) Remove(key []byte) error {
	if s.host.FailWrites {
		return errInjectedWrite
	}
	delete(s.host.storage, string(key))
	return nil
}
