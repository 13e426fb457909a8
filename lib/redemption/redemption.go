// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package redemption

import (
	"errors"
	"fmt"

	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/signing"
	"github.com/turnstile-systems/turnstile/lib/statestore"
)

// ErrInvalidProof indicates the presented proof does not verify under
// the batch's issuer key. A stored ticket never transitions on an
// invalid proof.
var ErrInvalidProof = errors.New("redemption: proof does not verify")

// Receipt is the outcome of a successful redemption.
type Receipt struct {
	// BatchID is the batch the ticket belonged to.
	BatchID uint64 `cbor:"1,keyasint"`

	// TicketID is the redeemed ticket.
	TicketID [signing.DigestSize]byte `cbor:"2,keyasint"`

	// RedeemedAt is the redemption time, Unix seconds.
	RedeemedAt int64 `cbor:"3,keyasint"`
}

// Redeem verifies the presented credential and marks it redeemed.
// Verification happens against the batch's stored public key and the
// presented proof, not the stored one: the gate proves possession of a
// genuine credential, it does not merely name a ticket ID.
func Redeem(env *host.Env, batchID uint64, ticketID [signing.DigestSize]byte, proof []byte) (*Receipt, error) {
	store := statestore.New(env.Storage)

	batch, found, err := store.GetBatch(batchID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: batch %d", credential.ErrBatchNotFound, batchID)
	}

	ticket, found, err := store.GetTicket(batchID, ticketID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: ticket %x in batch %d", credential.ErrTicketNotFound, ticketID[:6], batchID)
	}

	presented := credential.Credential{BatchID: batchID, TicketID: ticketID, Proof: proof}
	if !presented.VerifyAuthenticity(batch.IssuerPublicKey) {
		return nil, fmt.Errorf("%w: ticket %x", ErrInvalidProof, ticketID[:6])
	}

	if err := ticket.Redeem(env.Clock.Now()); err != nil {
		return nil, err
	}
	if err := store.PutTicket(ticket); err != nil {
		return nil, err
	}

	return &Receipt{
		BatchID:    batchID,
		TicketID:   ticketID,
		RedeemedAt: ticket.RedeemedAt,
	}, nil
}
