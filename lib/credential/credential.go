// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/turnstile-systems/turnstile/lib/secret"
	"github.com/turnstile-systems/turnstile/lib/signing"
)

// PayloadVersion is the current signing payload layout version. Bump on
// any change to SigningPayload's byte layout; old proofs verify only
// under the layout version they were issued with.
const PayloadVersion byte = 0x01

// PayloadSize is the size of the signing payload: version byte, batch
// ID, ticket ID.
const PayloadSize = 1 + 8 + signing.DigestSize

// Errors shared by the engines operating on this model.
var (
	ErrBatchNotFound   = errors.New("credential: batch not found")
	ErrTicketNotFound  = errors.New("credential: ticket not found")
	ErrAlreadyRedeemed = errors.New("credential: ticket already redeemed")
)

// Custody says where a batch's signing key lives.
type Custody string

const (
	// CustodyIssuer: the private key was returned to the issuer at
	// batch creation and never stored. The issuer supplies it with
	// each issuance call.
	CustodyIssuer Custody = "issuer"

	// CustodySealed: the private key is age-encrypted to the enclave
	// recipient and stored on the batch record. Only the enclave can
	// decrypt it, and only inside an issuance call.
	CustodySealed Custody = "sealed"
)

// Batch is a set of tickets for one event, bound to one issuer keypair.
//
// Storage key: ts/v1/batch/<8-byte big-endian ID>
type Batch struct {
	// ID is the batch identifier, allocated from the contract's
	// monotonic sequence.
	ID uint64 `cbor:"1,keyasint"`

	// IssuerPublicKey verifies every ticket proof in this batch.
	// Immutable after creation.
	IssuerPublicKey []byte `cbor:"2,keyasint"`

	// Capacity is the maximum number of tickets issuable.
	Capacity uint32 `cbor:"3,keyasint"`

	// IssuedCount is the number of tickets issued so far. Only the
	// issuance engine increments it; it never exceeds Capacity and
	// never decreases.
	IssuedCount uint32 `cbor:"4,keyasint"`

	// Custody records where the signing key lives.
	Custody Custody `cbor:"5,keyasint"`

	// SealedKey is the age-encrypted signing key, present only for
	// CustodySealed.
	SealedKey string `cbor:"6,keyasint,omitempty"`

	// CreatedBy is the issuer address that created the batch.
	CreatedBy string `cbor:"7,keyasint"`

	// CreatedAt is a Unix timestamp (seconds).
	CreatedAt int64 `cbor:"8,keyasint"`
}

// SoldOut reports whether the batch has reached capacity.
func (b *Batch) SoldOut() bool {
	return b.IssuedCount >= b.Capacity
}

// Validate checks record-level invariants. Used after decoding a stored
// batch, where a violation means corrupt state, not caller error.
func (b *Batch) Validate() error {
	if len(b.IssuerPublicKey) != signing.PublicKeySize {
		return fmt.Errorf("batch %d: issuer public key is %d bytes, want %d",
			b.ID, len(b.IssuerPublicKey), signing.PublicKeySize)
	}
	if b.Capacity == 0 {
		return fmt.Errorf("batch %d: capacity is zero", b.ID)
	}
	if b.IssuedCount > b.Capacity {
		return fmt.Errorf("batch %d: issued count %d exceeds capacity %d",
			b.ID, b.IssuedCount, b.Capacity)
	}
	switch b.Custody {
	case CustodyIssuer:
		if b.SealedKey != "" {
			return fmt.Errorf("batch %d: sealed key present under issuer custody", b.ID)
		}
	case CustodySealed:
		if b.SealedKey == "" {
			return fmt.Errorf("batch %d: sealed key missing under sealed custody", b.ID)
		}
	default:
		return fmt.Errorf("batch %d: unknown custody %q", b.ID, b.Custody)
	}
	return nil
}

// Status is a ticket's redemption state. The zero value is deliberately
// invalid so a corrupt record cannot decode into a usable status.
type Status uint8

const (
	// StatusValid: issued and not yet redeemed.
	StatusValid Status = 1

	// StatusRedeemed: consumed. Terminal.
	StatusRedeemed Status = 2
)

// String returns the status name for receipts and query responses.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusRedeemed:
		return "redeemed"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(s))
	}
}

// Credential is one ticket: identifier, proof of authenticity, and
// redemption state.
//
// Storage key: ts/v1/ticket/<8-byte big-endian batch ID><32-byte ticket ID>
type Credential struct {
	// BatchID is the owning batch.
	BatchID uint64 `cbor:"1,keyasint"`

	// TicketID is the ticket identifier, derived from a random nonce
	// keyed to the batch. Not sequential: identifiers reveal nothing
	// about issuance order or batch position.
	TicketID [signing.DigestSize]byte `cbor:"2,keyasint"`

	// Proof is the issuer's Ed25519 signature over the signing
	// payload for (BatchID, TicketID).
	Proof []byte `cbor:"3,keyasint"`

	// Status is the redemption state.
	Status Status `cbor:"4,keyasint"`

	// RedeemedAt is a Unix timestamp (seconds), set exactly once when
	// Status transitions to StatusRedeemed.
	RedeemedAt int64 `cbor:"5,keyasint,omitempty"`
}

// SigningPayload returns the fixed byte layout the proof signs:
// PayloadVersion, big-endian batch ID, ticket ID.
func SigningPayload(batchID uint64, ticketID [signing.DigestSize]byte) []byte {
	payload := make([]byte, PayloadSize)
	payload[0] = PayloadVersion
	binary.BigEndian.PutUint64(payload[1:9], batchID)
	copy(payload[9:], ticketID[:])
	return payload
}

// New mints a credential for a batch: derives the ticket ID from the
// nonce, signs the payload with the issuer private key, and returns the
// credential in the valid state. The key is borrowed, not closed.
func New(batchID uint64, nonce []byte, issuerKey *secret.Buffer) (*Credential, error) {
	ticketID := signing.TicketDigest(batchID, nonce)

	proof, err := signing.Sign(issuerKey, SigningPayload(batchID, ticketID))
	if err != nil {
		return nil, fmt.Errorf("signing ticket %x: %w", ticketID[:6], err)
	}

	return &Credential{
		BatchID:  batchID,
		TicketID: ticketID,
		Proof:    proof,
		Status:   StatusValid,
	}, nil
}

// VerifyAuthenticity reports whether the credential's proof verifies
// under the issuer public key for exactly this (batch ID, ticket ID)
// pair. Pure; malformed keys or proofs return false.
func (c *Credential) VerifyAuthenticity(issuerPublicKey []byte) bool {
	return signing.Verify(issuerPublicKey, SigningPayload(c.BatchID, c.TicketID), c.Proof)
}

// Redeem transitions the credential from valid to redeemed, stamping
// the redemption time. The transition happens at most once: a second
// call fails with ErrAlreadyRedeemed, and a credential in any state
// other than valid never becomes redeemable again.
func (c *Credential) Redeem(at time.Time) error {
	switch c.Status {
	case StatusValid:
		c.Status = StatusRedeemed
		c.RedeemedAt = at.Unix()
		return nil
	case StatusRedeemed:
		return fmt.Errorf("%w: ticket %x redeemed at %d", ErrAlreadyRedeemed, c.TicketID[:6], c.RedeemedAt)
	default:
		return fmt.Errorf("ticket %x has invalid status %d", c.TicketID[:6], c.Status)
	}
}
