// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package issuance creates ticket batches and mints ticket credentials.
//
// IssueBatch allocates a batch ID from the contract sequence, derives a
// fresh issuer keypair from the host entropy feed, and records the
// batch. The private key either goes back to the caller exactly once
// (issuer custody) or is sealed to the enclave recipient and stored on
// the batch record (sealed custody).
//
// IssueTicket draws a random nonce, derives the ticket ID, and signs
// the credential with the batch's key. For issuer custody the caller
// supplies the key with the call; for sealed custody the engine unseals
// the stored key with the enclave identity, uses it, and releases it
// before returning.
//
// Both operations check everything before the first storage write, so a
// rejected call leaves no partial state behind.
package issuance
