// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package signing wraps the asymmetric cryptography behind ticket proofs:
// Ed25519 key generation, signing, verification, and the BLAKE3 ticket
// identifier derivation. It is the only package that touches raw key
// material.
//
// A ticket proof is an Ed25519 signature by the batch's issuer key over
// the credential signing payload. Verification needs only the batch's
// public key and the two public fields (batch ID, ticket ID) — no holder
// identity is ever stored or transmitted, so validity checks reveal
// nothing about who holds the ticket.
//
// Verify never returns an error and never panics: a malformed key,
// message, or signature is a forged credential, and forged credentials
// are invalid, not crashes.
package signing
