// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/turnstile-systems/turnstile/lib/clock"
	"github.com/turnstile-systems/turnstile/lib/codec"
	"github.com/turnstile-systems/turnstile/lib/entropy"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/secret"
)

// fileState is the local stand-in for the chain host: the contract's
// key-value store held as a CBOR map on disk, OS entropy in place of
// enclave hardware, the wall clock, and an optional age identity file
// in place of the enclave identity.
type fileState struct {
	path         string
	caller       string
	identityPath string
	storage      map[string][]byte
}

// loadState reads the state file, or starts empty if it does not exist
// yet.
func loadState(path, caller, identityPath string) (*fileState, error) {
	state := &fileState{
		path:         path,
		caller:       caller,
		identityPath: identityPath,
		storage:      make(map[string][]byte),
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	if err := codec.Unmarshal(raw, &state.storage); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	return state, nil
}

// env builds the host environment for one contract call.
func (s *fileState) env() *host.Env {
	env := &host.Env{
		Storage: mapStorage{storage: s.storage},
		Caller:  s.caller,
		Clock:   clock.Real(),
		Entropy: func() ([entropy.SeedSize]byte, error) {
			var seed [entropy.SeedSize]byte
			if _, err := rand.Read(seed[:]); err != nil {
				return seed, fmt.Errorf("reading OS entropy: %w", err)
			}
			return seed, nil
		},
	}
	if s.identityPath != "" {
		env.EnclaveIdentity = func() (*secret.Buffer, error) {
			raw, err := os.ReadFile(s.identityPath)
			if err != nil {
				return nil, fmt.Errorf("reading identity file: %w", err)
			}
			return secret.NewFromBytes(bytes.TrimSpace(raw))
		}
	}
	return env
}

// save writes the state file atomically: temp file in the same
// directory, then rename.
func (s *fileState) save() error {
	raw, err := codec.Marshal(s.storage)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	directory := filepath.Dir(s.path)
	temp, err := os.CreateTemp(directory, ".turnstile-state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	if _, err := temp.Write(raw); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(temp.Name(), s.path); err != nil {
		os.Remove(temp.Name())
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// mapStorage implements host.Storage over the loaded state map.
type mapStorage struct {
	storage map[string][]byte
}

func (s mapStorage) Get(key []byte) ([]byte, bool, error) {
	value, found := s.storage[string(key)]
	return value, found, nil
}

func (s mapStorage) Set(key, value []byte) error {
	copied := make([]byte, len(value))
	copy(copied, value)
	s.storage[string(key)] = copied
	return nil
}

func (s mapStorage) Remove(key []byte) error {
	delete(s.storage, string(key))
	return nil
}
