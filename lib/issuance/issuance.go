// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package issuance

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/entropy"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/sealed"
	"github.com/turnstile-systems/turnstile/lib/secret"
	"github.com/turnstile-systems/turnstile/lib/signing"
	"github.com/turnstile-systems/turnstile/lib/statestore"
)

// NonceSize is the size of the random nonce a ticket ID is derived
// from.
const NonceSize = 32

// Errors returned by the issuance engine.
var (
	ErrNotInstantiated    = errors.New("issuance: contract not instantiated")
	ErrUnauthorized       = errors.New("issuance: caller not authorized")
	ErrCapacityInvalid    = errors.New("issuance: batch capacity invalid")
	ErrBatchExhausted     = errors.New("issuance: batch sold out")
	ErrCustodyUnavailable = errors.New("issuance: key custody unavailable")
)

// BatchResult is the outcome of a successful IssueBatch.
type BatchResult struct {
	// Batch is the persisted batch record.
	Batch *credential.Batch

	// SigningKey holds the issuer private key under issuer custody.
	// This is the only time the key exists outside the enclave; the
	// caller owns the buffer and must close it. Nil under sealed
	// custody.
	SigningKey *secret.Buffer
}

// IssueBatch creates a ticket batch with the given capacity. Only the
// contract owner may create batches. A fresh issuer keypair is derived
// from the call's entropy seed; custody decides where the private key
// goes.
func IssueBatch(env *host.Env, capacity uint32, custody credential.Custody) (*BatchResult, error) {
	store := statestore.New(env.Storage)

	config, found, err := store.GetConfig()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInstantiated
	}
	if env.Caller != config.Owner {
		return nil, fmt.Errorf("%w: %q is not the contract owner", ErrUnauthorized, env.Caller)
	}
	if capacity == 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrCapacityInvalid)
	}

	source, err := entropy.NewSource(env.Entropy)
	if err != nil {
		return nil, err
	}
	public, private, err := signing.GenerateKeypair(source)
	if err != nil {
		return nil, err
	}

	batch := &credential.Batch{
		ID:              config.NextBatchID,
		IssuerPublicKey: public,
		Capacity:        capacity,
		Custody:         custody,
		CreatedBy:       env.Caller,
		CreatedAt:       env.Clock.Now().Unix(),
	}

	result := &BatchResult{Batch: batch}
	switch custody {
	case credential.CustodyIssuer:
		result.SigningKey = private
	case credential.CustodySealed:
		if config.EnclaveRecipient == "" {
			private.Close()
			return nil, fmt.Errorf("%w: no enclave recipient configured", ErrCustodyUnavailable)
		}
		sealedKey, err := sealed.Seal(private.Bytes(), config.EnclaveRecipient)
		private.Close()
		if err != nil {
			return nil, fmt.Errorf("sealing batch key: %w", err)
		}
		batch.SealedKey = sealedKey
	default:
		private.Close()
		return nil, fmt.Errorf("%w: unknown custody %q", ErrCustodyUnavailable, custody)
	}

	config.NextBatchID++
	if err := store.PutBatch(batch); err != nil {
		result.close()
		return nil, err
	}
	if err := store.AppendIssuerBatch(batch.CreatedBy, batch.ID); err != nil {
		result.close()
		return nil, err
	}
	if err := store.PutConfig(config); err != nil {
		result.close()
		return nil, err
	}
	return result, nil
}

func (r *BatchResult) close() {
	if r.SigningKey != nil {
		r.SigningKey.Close()
		r.SigningKey = nil
	}
}

// IssueTicket mints one credential from a batch. The caller must be the
// batch creator. Under issuer custody signingKey carries the batch's
// private key; under sealed custody it must be empty and the engine
// unseals the stored key with the enclave identity.
func IssueTicket(env *host.Env, batchID uint64, signingKey []byte) (*credential.Credential, error) {
	store := statestore.New(env.Storage)

	batch, found, err := store.GetBatch(batchID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: batch %d", credential.ErrBatchNotFound, batchID)
	}
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("stored batch invalid: %w", err)
	}
	if env.Caller != batch.CreatedBy {
		return nil, fmt.Errorf("%w: %q did not create batch %d", ErrUnauthorized, env.Caller, batchID)
	}
	if batch.SoldOut() {
		return nil, fmt.Errorf("%w: batch %d issued all %d tickets", ErrBatchExhausted, batchID, batch.Capacity)
	}

	key, err := batchKey(env, batch, signingKey)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	public, err := signing.PublicKeyFor(key)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(public, batch.IssuerPublicKey) {
		return nil, fmt.Errorf("%w: signing key does not match batch %d", ErrUnauthorized, batchID)
	}

	source, err := entropy.NewSource(env.Entropy)
	if err != nil {
		return nil, err
	}
	nonce, err := source.Bytes(NonceSize)
	if err != nil {
		return nil, err
	}

	ticket, err := credential.New(batchID, nonce, key)
	if err != nil {
		return nil, err
	}
	if _, exists, err := store.GetTicket(batchID, ticket.TicketID); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("ticket %x already exists in batch %d", ticket.TicketID[:6], batchID)
	}

	batch.IssuedCount++
	if err := store.PutTicket(ticket); err != nil {
		return nil, err
	}
	if err := store.PutBatch(batch); err != nil {
		return nil, err
	}
	return ticket, nil
}

// batchKey resolves the signing key for one issuance call according to
// the batch's custody. The returned buffer is owned by the caller.
func batchKey(env *host.Env, batch *credential.Batch, signingKey []byte) (*secret.Buffer, error) {
	switch batch.Custody {
	case credential.CustodyIssuer:
		if len(signingKey) != signing.PrivateKeySize {
			return nil, fmt.Errorf("%w: signing key is %d bytes, want %d",
				ErrUnauthorized, len(signingKey), signing.PrivateKeySize)
		}
		// Copy before wrapping: NewFromBytes zeroes its input, and the
		// message bytes may still be referenced by the dispatcher.
		held := make([]byte, len(signingKey))
		copy(held, signingKey)
		return secret.NewFromBytes(held)

	case credential.CustodySealed:
		if len(signingKey) != 0 {
			return nil, fmt.Errorf("%w: sealed batch takes no signing key", ErrUnauthorized)
		}
		if env.EnclaveIdentity == nil {
			return nil, fmt.Errorf("%w: host has no enclave identity", ErrCustodyUnavailable)
		}
		identity, err := env.EnclaveIdentity()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCustodyUnavailable, err)
		}
		defer identity.Close()
		key, err := sealed.Unseal(batch.SealedKey, identity)
		if err != nil {
			return nil, fmt.Errorf("unsealing batch %d key: %w", batch.ID, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("%w: unknown custody %q", ErrCustodyUnavailable, batch.Custody)
	}
}
