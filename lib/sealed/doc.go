// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for issuer signing keys held in
// contract state.
//
// A batch created with sealed custody stores its Ed25519 signing key
// age-encrypted to the enclave's x25519 recipient key. Anyone can read
// contract state, so the plaintext key must never touch storage: it is
// decrypted only inside an issuance call, using the enclave identity the
// trusted execution environment supplies, and destroyed before the call
// returns.
//
// Ciphertext is base64-encoded so it can sit in CBOR text fields of the
// batch record. Identities and decrypted plaintext travel in
// secret.Buffer values (mmap-backed, locked against swap, zeroed on
// close).
package sealed
