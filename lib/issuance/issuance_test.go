// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package issuance

import (
	"bytes"
	"errors"
	"testing"

	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/entropy"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/statestore"
)

// instantiatedHost returns a MemHost whose contract config names the
// default caller as owner. withEnclave also provisions an enclave
// identity and records its recipient.
func instantiatedHost(t *testing.T, withEnclave bool) *host.MemHost {
	t.Helper()
	mem := host.NewMemHost()
	t.Cleanup(func() { mem.Close() })

	config := &statestore.Config{Owner: mem.Caller, NextBatchID: 1}
	if withEnclave {
		recipient, err := mem.WithEnclaveIdentity()
		if err != nil {
			t.Fatalf("WithEnclaveIdentity: %v", err)
		}
		config.EnclaveRecipient = recipient
	}
	if err := statestore.New(mem.Env().Storage).PutConfig(config); err != nil {
		t.Fatalf("seeding config: %v", err)
	}
	return mem
}

func mustIssueBatch(t *testing.T, mem *host.MemHost, capacity uint32, custody credential.Custody) *BatchResult {
	t.Helper()
	result, err := IssueBatch(mem.Env(), capacity, custody)
	if err != nil {
		t.Fatalf("IssueBatch: %v", err)
	}
	if result.SigningKey != nil {
		t.Cleanup(func() { result.SigningKey.Close() })
	}
	return result
}

func TestIssueBatchIssuerCustody(t *testing.T) {
	mem := instantiatedHost(t, false)

	result := mustIssueBatch(t, mem, 100, credential.CustodyIssuer)

	if result.Batch.ID != 1 {
		t.Errorf("first batch ID = %d, want 1", result.Batch.ID)
	}
	if result.SigningKey == nil {
		t.Fatal("issuer custody returned no signing key")
	}
	if result.Batch.SealedKey != "" {
		t.Error("issuer custody stored a sealed key")
	}
	if result.Batch.CreatedBy != "creator" {
		t.Errorf("CreatedBy = %q, want creator", result.Batch.CreatedBy)
	}

	store := statestore.New(mem.Env().Storage)
	stored, found, err := store.GetBatch(1)
	if err != nil || !found {
		t.Fatalf("stored batch: found=%v err=%v", found, err)
	}
	if !bytes.Equal(stored.IssuerPublicKey, result.Batch.IssuerPublicKey) {
		t.Error("stored public key does not match result")
	}

	config, _, err := store.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if config.NextBatchID != 2 {
		t.Errorf("NextBatchID = %d, want 2", config.NextBatchID)
	}

	ids, err := store.IssuerBatches("creator")
	if err != nil || len(ids) != 1 || ids[0] != 1 {
		t.Errorf("issuer index = %v (err %v), want [1]", ids, err)
	}
}

func TestIssueBatchSealedCustody(t *testing.T) {
	mem := instantiatedHost(t, true)

	result := mustIssueBatch(t, mem, 10, credential.CustodySealed)

	if result.SigningKey != nil {
		t.Error("sealed custody returned the signing key")
	}
	if result.Batch.SealedKey == "" {
		t.Error("sealed custody stored no sealed key")
	}
	if err := result.Batch.Validate(); err != nil {
		t.Errorf("sealed batch invalid: %v", err)
	}
}

func TestIssueBatchRejections(t *testing.T) {
	cases := []struct {
		name     string
		prepare  func(t *testing.T) *host.MemHost
		capacity uint32
		custody  credential.Custody
		want     error
	}{
		{
			name:     "not instantiated",
			prepare:  func(t *testing.T) *host.MemHost { return host.NewMemHost() },
			capacity: 1, custody: credential.CustodyIssuer,
			want: ErrNotInstantiated,
		},
		{
			name: "not owner",
			prepare: func(t *testing.T) *host.MemHost {
				mem := instantiatedHost(t, false)
				mem.Caller = "impostor"
				return mem
			},
			capacity: 1, custody: credential.CustodyIssuer,
			want: ErrUnauthorized,
		},
		{
			name:     "zero capacity",
			prepare:  func(t *testing.T) *host.MemHost { return instantiatedHost(t, false) },
			capacity: 0, custody: credential.CustodyIssuer,
			want: ErrCapacityInvalid,
		},
		{
			name:     "sealed custody without recipient",
			prepare:  func(t *testing.T) *host.MemHost { return instantiatedHost(t, false) },
			capacity: 1, custody: credential.CustodySealed,
			want: ErrCustodyUnavailable,
		},
		{
			name:     "unknown custody",
			prepare:  func(t *testing.T) *host.MemHost { return instantiatedHost(t, false) },
			capacity: 1, custody: credential.Custody("escrow"),
			want: ErrCustodyUnavailable,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			mem := tt.prepare(t)
			before := mem.Snapshot()

			_, err := IssueBatch(mem.Env(), tt.capacity, tt.custody)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			assertUnchanged(t, before, mem.Snapshot())
		})
	}
}

func TestIssueBatchEntropyFailure(t *testing.T) {
	mem := instantiatedHost(t, false)
	mem.FailEntropy = true
	before := mem.Snapshot()

	_, err := IssueBatch(mem.Env(), 10, credential.CustodyIssuer)
	if !errors.Is(err, entropy.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	assertUnchanged(t, before, mem.Snapshot())
}

func TestIssueTicketToExhaustion(t *testing.T) {
	mem := instantiatedHost(t, false)
	result := mustIssueBatch(t, mem, 2, credential.CustodyIssuer)
	key := keyBytes(result)

	first, err := IssueTicket(mem.Env(), 1, key)
	if err != nil {
		t.Fatalf("first IssueTicket: %v", err)
	}
	second, err := IssueTicket(mem.Env(), 1, key)
	if err != nil {
		t.Fatalf("second IssueTicket: %v", err)
	}
	if first.TicketID == second.TicketID {
		t.Error("two tickets share an identifier")
	}
	for _, ticket := range []*credential.Credential{first, second} {
		if !ticket.VerifyAuthenticity(result.Batch.IssuerPublicKey) {
			t.Errorf("ticket %x does not verify under the batch key", ticket.TicketID[:6])
		}
	}

	_, err = IssueTicket(mem.Env(), 1, key)
	if !errors.Is(err, ErrBatchExhausted) {
		t.Fatalf("third IssueTicket: got %v, want ErrBatchExhausted", err)
	}

	batch, _, err := statestore.New(mem.Env().Storage).GetBatch(1)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.IssuedCount != 2 {
		t.Errorf("IssuedCount = %d, want 2", batch.IssuedCount)
	}
}

func TestIssueTicketSealedCustody(t *testing.T) {
	mem := instantiatedHost(t, true)
	result := mustIssueBatch(t, mem, 5, credential.CustodySealed)

	ticket, err := IssueTicket(mem.Env(), 1, nil)
	if err != nil {
		t.Fatalf("IssueTicket: %v", err)
	}
	if !ticket.VerifyAuthenticity(result.Batch.IssuerPublicKey) {
		t.Error("sealed-custody ticket does not verify under the batch key")
	}

	// Supplying a key to a sealed batch is a caller error.
	if _, err := IssueTicket(mem.Env(), 1, keyBytes(mustIssueBatchAux(t, mem))); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("sealed batch with supplied key: got %v, want ErrUnauthorized", err)
	}
}

// mustIssueBatchAux creates a second issuer-custody batch just for its
// signing key.
func mustIssueBatchAux(t *testing.T, mem *host.MemHost) *BatchResult {
	t.Helper()
	return mustIssueBatch(t, mem, 1, credential.CustodyIssuer)
}

func TestIssueTicketRejections(t *testing.T) {
	mem := instantiatedHost(t, false)
	result := mustIssueBatch(t, mem, 10, credential.CustodyIssuer)
	foreign := mustIssueBatch(t, mem, 10, credential.CustodyIssuer)

	t.Run("unknown batch", func(t *testing.T) {
		_, err := IssueTicket(mem.Env(), 99, keyBytes(result))
		if !errors.Is(err, credential.ErrBatchNotFound) {
			t.Errorf("got %v, want ErrBatchNotFound", err)
		}
	})

	t.Run("wrong signing key", func(t *testing.T) {
		_, err := IssueTicket(mem.Env(), 1, keyBytes(foreign))
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("truncated signing key", func(t *testing.T) {
		_, err := IssueTicket(mem.Env(), 1, keyBytes(result)[:16])
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})

	t.Run("caller is not batch creator", func(t *testing.T) {
		mem.Caller = "scalper"
		defer func() { mem.Caller = "creator" }()
		_, err := IssueTicket(mem.Env(), 1, keyBytes(result))
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("got %v, want ErrUnauthorized", err)
		}
	})
}

func TestIssueTicketWriteFailureCommitsNothing(t *testing.T) {
	mem := instantiatedHost(t, false)
	result := mustIssueBatch(t, mem, 10, credential.CustodyIssuer)

	mem.FailWrites = true
	before := mem.Snapshot()

	_, err := IssueTicket(mem.Env(), 1, keyBytes(result))
	if !errors.Is(err, statestore.ErrStorageWrite) {
		t.Fatalf("got %v, want ErrStorageWrite", err)
	}
	assertUnchanged(t, before, mem.Snapshot())
}

// keyBytes copies the signing key out of a batch result, the way a
// dispatcher would carry it in a message.
func keyBytes(result *BatchResult) []byte {
	held := result.SigningKey.Bytes()
	out := make([]byte, len(held))
	copy(out, held)
	return out
}

func assertUnchanged(t *testing.T, before, after map[string][]byte) {
	t.Helper()
	if len(before) != len(after) {
		t.Fatalf("storage changed: %d keys before, %d after", len(before), len(after))
	}
	for key, value := range before {
		if !bytes.Equal(after[key], value) {
			t.Errorf("storage key %q changed", key)
		}
	}
}
