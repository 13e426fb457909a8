// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package contract

import (
	"errors"
	"fmt"

	"github.com/turnstile-systems/turnstile/lib/codec"
	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/issuance"
	"github.com/turnstile-systems/turnstile/lib/redemption"
	"github.com/turnstile-systems/turnstile/lib/sealed"
	"github.com/turnstile-systems/turnstile/lib/signing"
	"github.com/turnstile-systems/turnstile/lib/statestore"
)

// Errors returned by the dispatch layer.
var (
	ErrAlreadyInstantiated = errors.New("contract: already instantiated")
	ErrBadMessage          = errors.New("contract: malformed message")
)

// Instantiate initializes contract state. The caller becomes the owner.
// Runs exactly once per contract instance.
func Instantiate(env *host.Env, raw []byte) error {
	var msg InstantiateMsg
	if err := codec.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	store := statestore.New(env.Storage)
	if _, found, err := store.GetConfig(); err != nil {
		return err
	} else if found {
		return ErrAlreadyInstantiated
	}

	if msg.EnclaveRecipient != "" {
		if err := sealed.ValidateRecipient(msg.EnclaveRecipient); err != nil {
			return fmt.Errorf("%w: %w", ErrBadMessage, err)
		}
	}

	return store.PutConfig(&statestore.Config{
		Owner:            env.Caller,
		EnclaveRecipient: msg.EnclaveRecipient,
		NextBatchID:      1,
	})
}

// Execute decodes and dispatches one state-changing message, returning
// the encoded result.
func Execute(env *host.Env, raw []byte) ([]byte, error) {
	var msg ExecuteMsg
	if err := codec.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	arms := 0
	for _, set := range []bool{msg.IssueBatch != nil, msg.IssueTicket != nil, msg.Redeem != nil} {
		if set {
			arms++
		}
	}
	if arms != 1 {
		return nil, fmt.Errorf("%w: execute message has %d arms, want 1", ErrBadMessage, arms)
	}

	var result ExecuteResult
	switch {
	case msg.IssueBatch != nil:
		created, err := executeIssueBatch(env, msg.IssueBatch)
		if err != nil {
			return nil, err
		}
		result.BatchCreated = created

	case msg.IssueTicket != nil:
		ticket, err := issuance.IssueTicket(env, msg.IssueTicket.BatchID, msg.IssueTicket.SigningKey)
		if err != nil {
			return nil, err
		}
		result.TicketIssued = &TicketIssued{
			BatchID:  ticket.BatchID,
			TicketID: ticket.TicketID[:],
			Proof:    ticket.Proof,
		}

	case msg.Redeem != nil:
		ticketID, err := ticketID32(msg.Redeem.TicketID)
		if err != nil {
			return nil, err
		}
		receipt, err := redemption.Redeem(env, msg.Redeem.BatchID, ticketID, msg.Redeem.Proof)
		if err != nil {
			return nil, err
		}
		result.Redeemed = &Redeemed{
			BatchID:    receipt.BatchID,
			TicketID:   receipt.TicketID[:],
			RedeemedAt: receipt.RedeemedAt,
		}
	}

	return codec.Marshal(&result)
}

func executeIssueBatch(env *host.Env, msg *IssueBatchMsg) (*BatchCreated, error) {
	batch, err := issuance.IssueBatch(env, msg.Capacity, credential.Custody(msg.Custody))
	if err != nil {
		return nil, err
	}

	created := &BatchCreated{
		BatchID:         batch.Batch.ID,
		IssuerPublicKey: batch.Batch.IssuerPublicKey,
		Custody:         string(batch.Batch.Custody),
	}
	if batch.SigningKey != nil {
		// The one moment the key crosses the wire. The secret buffer is
		// released here; the response copy is the issuer's problem.
		created.SigningKey = make([]byte, batch.SigningKey.Len())
		copy(created.SigningKey, batch.SigningKey.Bytes())
		batch.SigningKey.Close()
	}
	return created, nil
}

// Query decodes and dispatches one read-only message, returning the
// encoded result. Queries never write.
func Query(env *host.Env, raw []byte) ([]byte, error) {
	var msg QueryMsg
	if err := codec.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	arms := 0
	for _, set := range []bool{msg.TicketStatus != nil, msg.Batch != nil, msg.IssuerBatches != nil} {
		if set {
			arms++
		}
	}
	if arms != 1 {
		return nil, fmt.Errorf("%w: query message has %d arms, want 1", ErrBadMessage, arms)
	}

	store := statestore.New(env.Storage)
	switch {
	case msg.TicketStatus != nil:
		ticketID, err := ticketID32(msg.TicketStatus.TicketID)
		if err != nil {
			return nil, err
		}
		ticket, found, err := store.GetTicket(msg.TicketStatus.BatchID, ticketID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: ticket %x in batch %d",
				credential.ErrTicketNotFound, ticketID[:6], msg.TicketStatus.BatchID)
		}
		return codec.Marshal(&TicketStatusResult{
			Status:     ticket.Status.String(),
			RedeemedAt: ticket.RedeemedAt,
		})

	case msg.Batch != nil:
		batch, found, err := store.GetBatch(msg.Batch.BatchID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: batch %d", credential.ErrBatchNotFound, msg.Batch.BatchID)
		}
		return codec.Marshal(&BatchInfo{
			BatchID:         batch.ID,
			IssuerPublicKey: batch.IssuerPublicKey,
			Capacity:        batch.Capacity,
			IssuedCount:     batch.IssuedCount,
			SoldOut:         batch.SoldOut(),
			Custody:         string(batch.Custody),
			CreatedBy:       batch.CreatedBy,
			CreatedAt:       batch.CreatedAt,
		})

	default:
		batchIDs, err := store.IssuerBatches(msg.IssuerBatches.Issuer)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(&IssuerBatchesResult{BatchIDs: batchIDs})
	}
}

func ticketID32(raw []byte) ([signing.DigestSize]byte, error) {
	var ticketID [signing.DigestSize]byte
	if len(raw) != signing.DigestSize {
		return ticketID, fmt.Errorf("%w: ticket ID is %d bytes, want %d",
			ErrBadMessage, len(raw), signing.DigestSize)
	}
	copy(ticketID[:], raw)
	return ticketID, nil
}
