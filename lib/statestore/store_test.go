// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"bytes"
	"errors"
	"testing"

	"github.com/turnstile-systems/turnstile/lib/credential"
	"github.com/turnstile-systems/turnstile/lib/host"
	"github.com/turnstile-systems/turnstile/lib/signing"
)

func testStore(t *testing.T) (*Store, *host.MemHost) {
	t.Helper()
	mem := host.NewMemHost()
	return New(mem.Env().Storage), mem
}

func TestBatchKeyLayout(t *testing.T) {
	key := BatchKey(0x0102030405060708)

	if !bytes.HasPrefix(key, []byte("ts/v1/batch/")) {
		t.Fatalf("key %q missing versioned prefix", key)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if !bytes.Equal(key[len(key)-8:], want) {
		t.Errorf("key suffix = %x, want %x", key[len(key)-8:], want)
	}
}

func TestTicketKeyLayout(t *testing.T) {
	var ticketID [signing.DigestSize]byte
	for i := range ticketID {
		ticketID[i] = byte(i)
	}
	key := TicketKey(7, ticketID)

	if !bytes.HasPrefix(key, []byte("ts/v1/ticket/")) {
		t.Fatalf("key %q missing versioned prefix", key)
	}
	if len(key) != len("ts/v1/ticket/")+8+signing.DigestSize {
		t.Fatalf("key is %d bytes", len(key))
	}
	if !bytes.Equal(key[len(key)-signing.DigestSize:], ticketID[:]) {
		t.Error("ticket ID bytes do not terminate the key")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	store, _ := testStore(t)

	if _, found, err := store.GetConfig(); err != nil || found {
		t.Fatalf("GetConfig before instantiation: found=%v err=%v", found, err)
	}

	config := &Config{Owner: "creator", EnclaveRecipient: "age1test", NextBatchID: 1}
	if err := store.PutConfig(config); err != nil {
		t.Fatalf("PutConfig: %v", err)
	}

	loaded, found, err := store.GetConfig()
	if err != nil || !found {
		t.Fatalf("GetConfig: found=%v err=%v", found, err)
	}
	if *loaded != *config {
		t.Errorf("loaded config %+v, want %+v", loaded, config)
	}
}

func TestBatchRoundTrip(t *testing.T) {
	store, _ := testStore(t)

	batch := &credential.Batch{
		ID:              3,
		IssuerPublicKey: bytes.Repeat([]byte{0xAB}, signing.PublicKeySize),
		Capacity:        50,
		IssuedCount:     2,
		Custody:         credential.CustodyIssuer,
		CreatedBy:       "organiser",
		CreatedAt:       1780000000,
	}
	if err := store.PutBatch(batch); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	loaded, found, err := store.GetBatch(3)
	if err != nil || !found {
		t.Fatalf("GetBatch: found=%v err=%v", found, err)
	}
	if loaded.IssuedCount != 2 || !bytes.Equal(loaded.IssuerPublicKey, batch.IssuerPublicKey) {
		t.Errorf("loaded batch %+v does not match stored", loaded)
	}

	if _, found, err := store.GetBatch(99); err != nil || found {
		t.Errorf("absent batch: found=%v err=%v", found, err)
	}
}

func TestTicketRoundTrip(t *testing.T) {
	store, _ := testStore(t)

	ticket := &credential.Credential{
		BatchID: 3,
		Proof:   bytes.Repeat([]byte{0x11}, signing.ProofSize),
		Status:  credential.StatusValid,
	}
	ticket.TicketID[0] = 0xFE

	if err := store.PutTicket(ticket); err != nil {
		t.Fatalf("PutTicket: %v", err)
	}

	loaded, found, err := store.GetTicket(3, ticket.TicketID)
	if err != nil || !found {
		t.Fatalf("GetTicket: found=%v err=%v", found, err)
	}
	if loaded.Status != credential.StatusValid || !bytes.Equal(loaded.Proof, ticket.Proof) {
		t.Errorf("loaded ticket %+v does not match stored", loaded)
	}

	// Same ticket ID under a different batch is a distinct record.
	if _, found, _ := store.GetTicket(4, ticket.TicketID); found {
		t.Error("ticket visible under foreign batch ID")
	}
}

func TestIssuerBatches(t *testing.T) {
	store, _ := testStore(t)

	ids, err := store.IssuerBatches("organiser")
	if err != nil {
		t.Fatalf("IssuerBatches on empty index: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("empty index returned %v", ids)
	}

	for _, id := range []uint64{1, 2, 5} {
		if err := store.AppendIssuerBatch("organiser", id); err != nil {
			t.Fatalf("AppendIssuerBatch(%d): %v", id, err)
		}
	}
	if err := store.AppendIssuerBatch("other", 3); err != nil {
		t.Fatalf("AppendIssuerBatch(other): %v", err)
	}

	ids, err = store.IssuerBatches("organiser")
	if err != nil {
		t.Fatalf("IssuerBatches: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 5 {
		t.Errorf("organiser index = %v, want [1 2 5]", ids)
	}
}

func TestReadFailureWrapsSentinel(t *testing.T) {
	store, mem := testStore(t)
	mem.FailReads = true

	_, _, err := store.GetConfig()
	if !errors.Is(err, ErrStorageRead) {
		t.Errorf("GetConfig under failing reads: got %v, want ErrStorageRead", err)
	}
}

func TestWriteFailureWrapsSentinel(t *testing.T) {
	store, mem := testStore(t)
	mem.FailWrites = true

	err := store.PutConfig(&Config{Owner: "creator", NextBatchID: 1})
	if !errors.Is(err, ErrStorageWrite) {
		t.Errorf("PutConfig under failing writes: got %v, want ErrStorageWrite", err)
	}
}

func TestCorruptRecordIsReadError(t *testing.T) {
	mem := host.NewMemHost()
	env := mem.Env()
	if err := env.Storage.Set([]byte("ts/v1/config"), []byte{0xFF, 0x00, 0x01}); err != nil {
		t.Fatalf("seeding corrupt record: %v", err)
	}

	store := New(env.Storage)
	_, _, err := store.GetConfig()
	if !errors.Is(err, ErrStorageRead) {
		t.Errorf("corrupt config: got %v, want ErrStorageRead", err)
	}
}
