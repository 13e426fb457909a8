// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package redemption

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/issuance"
	"github.com/turnstile-systems/turnstile/lib/statestore"
)

// issuedTicket sets up an instantiated host with one issuer-custody
// batch and one issued ticket.
func issuedTicket(t *testing.T, capacity uint32) (*host.MemHost, *credential.Credential) {
	t.Helper()
	mem := host.NewMemHost()
	t.Cleanup(func() { mem.Close() })

	config := &statestore.Config{Owner: mem.Caller, NextBatchID: 1}
	if err := statestore.New(mem.Env().Storage).PutConfig(config); err != nil {
		t.Fatalf("seeding config: %v", err)
	}

	result, err := issuance.IssueBatch(mem.Env(), capacity, credential.CustodyIssuer)
	if err != nil {
		t.Fatalf("IssueBatch: %v", err)
	}
	defer result.SigningKey.Close()

	key := make([]byte, len(result.SigningKey.Bytes()))
	copy(key, result.SigningKey.Bytes())
	ticket, err := issuance.IssueTicket(mem.Env(), result.Batch.ID, key)
	if err != nil {
		t.Fatalf("IssueTicket: %v", err)
	}
	return mem, ticket
}

func TestRedeemOnce(t *testing.T) {
	mem, ticket := issuedTicket(t, 5)
	mem.Caller = "guest" // anyone holding the credential may redeem

	redeemTime := mem.Clock.Now()
	receipt, err := Redeem(mem.Env(), ticket.BatchID, ticket.TicketID, ticket.Proof)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if receipt.BatchID != ticket.BatchID || receipt.TicketID != ticket.TicketID {
		t.Errorf("receipt names wrong ticket: %+v", receipt)
	}
	if receipt.RedeemedAt != redeemTime.Unix() {
		t.Errorf("RedeemedAt = %d, want %d", receipt.RedeemedAt, redeemTime.Unix())
	}

	stored, found, err := statestore.New(mem.Env().Storage).GetTicket(ticket.BatchID, ticket.TicketID)
	if err != nil || !found {
		t.Fatalf("stored ticket: found=%v err=%v", found, err)
	}
	if stored.Status != credential.StatusRedeemed {
		t.Errorf("stored status = %v, want redeemed", stored.Status)
	}

	mem.Clock.Advance(time.Hour)
	_, err = Redeem(mem.Env(), ticket.BatchID, ticket.TicketID, ticket.Proof)
	if !errors.Is(err, credential.ErrAlreadyRedeemed) {
		t.Fatalf("second Redeem: got %v, want ErrAlreadyRedeemed", err)
	}

	// The second attempt must not move the recorded timestamp.
	stored, _, err = statestore.New(mem.Env().Storage).GetTicket(ticket.BatchID, ticket.TicketID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if stored.RedeemedAt != redeemTime.Unix() {
		t.Error("failed redemption moved the timestamp")
	}
}

func TestRedeemTamperedProof(t *testing.T) {
	mem, ticket := issuedTicket(t, 5)
	before := mem.Snapshot()

	tampered := make([]byte, len(ticket.Proof))
	copy(tampered, ticket.Proof)
	tampered[10] ^= 0x01

	_, err := Redeem(mem.Env(), ticket.BatchID, ticket.TicketID, tampered)
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("got %v, want ErrInvalidProof", err)
	}

	after := mem.Snapshot()
	if len(after) != len(before) {
		t.Fatal("rejected redemption changed storage")
	}
	for key, value := range before {
		if !bytes.Equal(after[key], value) {
			t.Errorf("rejected redemption changed key %q", key)
		}
	}
}

func TestRedeemUnknownTicket(t *testing.T) {
	mem, ticket := issuedTicket(t, 5)

	var bogusID [32]byte
	bogusID[0] = 0xDD
	_, err := Redeem(mem.Env(), ticket.BatchID, bogusID, ticket.Proof)
	if !errors.Is(err, credential.ErrTicketNotFound) {
		t.Errorf("got %v, want ErrTicketNotFound", err)
	}

	_, err = Redeem(mem.Env(), 42, ticket.TicketID, ticket.Proof)
	if !errors.Is(err, credential.ErrBatchNotFound) {
		t.Errorf("got %v, want ErrBatchNotFound", err)
	}
}

func TestRedeemEmptyProof(t *testing.T) {
	mem, ticket := issuedTicket(t, 5)

	_, err := Redeem(mem.Env(), ticket.BatchID, ticket.TicketID, nil)
	if !errors.Is(err, ErrInvalidProof) {
		t.Errorf("got %v, want ErrInvalidProof", err)
	}
}

func TestRedeemWriteFailure(t *testing.T) {
	mem, ticket := issuedTicket(t, 5)
	mem.FailWrites = true
	before := mem.Snapshot()

	_, err := Redeem(mem.Env(), ticket.BatchID, ticket.TicketID, ticket.Proof)
	if !errors.Is(err, statestore.ErrStorageWrite) {
		t.Fatalf("got %v, want ErrStorageWrite", err)
	}

	after := mem.Snapshot()
	for key, value := range before {
		if !bytes.Equal(after[key], value) {
			t.Errorf("failed redemption changed key %q", key)
		}
	}
}
