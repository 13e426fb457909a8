// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/turnstile-systems/turnstile/lib/codec"
	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/signing"
)

// Errors wrapping host storage failures. Distinct from protocol errors
// (fake ticket, exhausted batch) so callers can tell "this credential is
// bad" from "the environment failed, try again".
var (
	ErrStorageRead  = errors.New("statestore: storage read failed")
	ErrStorageWrite = errors.New("statestore: storage write failed")
)

// Key layout prefixes. Versioned: a layout change gets a new version
// segment, it never rewrites v1 keys in place.
var (
	keyConfig       = []byte("ts/v1/config")
	prefixBatch     = []byte("ts/v1/batch/")
	prefixTicket    = []byte("ts/v1/ticket/")
	prefixIssuerIdx = []byte("ts/v1/issuer/")
)

// Config is the contract-level singleton written at instantiation.
type Config struct {
	// Owner is the address authorized to create batches.
	Owner string `cbor:"1,keyasint"`

	// EnclaveRecipient is the age public key batches with sealed
	// custody encrypt their signing keys to. Empty when the host has
	// no enclave key custody.
	EnclaveRecipient string `cbor:"2,keyasint,omitempty"`

	// NextBatchID is the next unallocated batch identifier.
	NextBatchID uint64 `cbor:"3,keyasint"`
}

// Store provides typed access to one call's transactional storage.
type Store struct {
	storage host.Storage
}

// New wraps the call's storage handle.
func New(storage host.Storage) *Store {
	return &Store{storage: storage}
}

// BatchKey returns the storage key for a batch record.
func BatchKey(batchID uint64) []byte {
	key := make([]byte, len(prefixBatch)+8)
	copy(key, prefixBatch)
	binary.BigEndian.PutUint64(key[len(prefixBatch):], batchID)
	return key
}

// TicketKey returns the storage key for a ticket record.
func TicketKey(batchID uint64, ticketID [signing.DigestSize]byte) []byte {
	key := make([]byte, len(prefixTicket)+8+signing.DigestSize)
	copy(key, prefixTicket)
	binary.BigEndian.PutUint64(key[len(prefixTicket):], batchID)
	copy(key[len(prefixTicket)+8:], ticketID[:])
	return key
}

func issuerIndexKey(issuer string) []byte {
	key := make([]byte, len(prefixIssuerIdx)+len(issuer))
	copy(key, prefixIssuerIdx)
	copy(key[len(prefixIssuerIdx):], issuer)
	return key
}

// GetConfig loads the contract config. found is false before
// instantiation.
func (s *Store) GetConfig() (*Config, bool, error) {
	var config Config
	found, err := s.get(keyConfig, &config, "config")
	if err != nil || !found {
		return nil, found, err
	}
	return &config, true, nil
}

// PutConfig writes the contract config.
func (s *Store) PutConfig(config *Config) error {
	return s.put(keyConfig, config, "config")
}

// GetBatch loads a batch record by ID.
func (s *Store) GetBatch(batchID uint64) (*credential.Batch, bool, error) {
	var batch credential.Batch
	found, err := s.get(BatchKey(batchID), &batch, "batch")
	if err != nil || !found {
		return nil, found, err
	}
	return &batch, true, nil
}

// PutBatch writes a batch record.
func (s *Store) PutBatch(batch *credential.Batch) error {
	return s.put(BatchKey(batch.ID), batch, "batch")
}

// GetTicket loads a ticket record by its batch and ticket ID.
func (s *Store) GetTicket(batchID uint64, ticketID [signing.DigestSize]byte) (*credential.Credential, bool, error) {
	var ticket credential.Credential
	found, err := s.get(TicketKey(batchID, ticketID), &ticket, "ticket")
	if err != nil || !found {
		return nil, found, err
	}
	return &ticket, true, nil
}

// PutTicket writes a ticket record.
func (s *Store) PutTicket(ticket *credential.Credential) error {
	return s.put(TicketKey(ticket.BatchID, ticket.TicketID), ticket, "ticket")
}

// IssuerBatches returns the batch IDs created by an issuer, oldest
// first. An issuer with no batches gets an empty slice.
func (s *Store) IssuerBatches(issuer string) ([]uint64, error) {
	var batchIDs []uint64
	if _, err := s.get(issuerIndexKey(issuer), &batchIDs, "issuer index"); err != nil {
		return nil, err
	}
	return batchIDs, nil
}

// AppendIssuerBatch adds a batch ID to an issuer's index.
func (s *Store) AppendIssuerBatch(issuer string, batchID uint64) error {
	batchIDs, err := s.IssuerBatches(issuer)
	if err != nil {
		return err
	}
	return s.put(issuerIndexKey(issuer), append(batchIDs, batchID), "issuer index")
}

// get loads and decodes one record. Returns found=false for absence;
// host failures and corrupt records wrap ErrStorageRead.
func (s *Store) get(key []byte, target any, what string) (bool, error) {
	raw, found, err := s.storage.Get(key)
	if err != nil {
		return false, fmt.Errorf("%w: reading %s: %w", ErrStorageRead, what, err)
	}
	if !found {
		return false, nil
	}
	if err := codec.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("%w: corrupt %s record: %w", ErrStorageRead, what, err)
	}
	return true, nil
}

// put encodes and writes one record. Host failures wrap ErrStorageWrite.
func (s *Store) put(key []byte, value any, what string) error {
	raw, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrStorageWrite, what, err)
	}
	if err := s.storage.Set(key, raw); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStorageWrite, what, err)
	}
	return nil
}
