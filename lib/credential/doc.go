// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential defines the persistent data model of the ticketing
// contract: the event batch and the ticket credential.
//
// A credential is fully public — batch ID, ticket ID, proof, redemption
// status. Its authenticity rests on the proof alone: an Ed25519
// signature by the batch's issuer key over the credential's signing
// payload. Nothing about the holder appears anywhere, so presenting a
// credential for verification reveals only that the ticket is genuine
// and unused.
//
// # Signing payload
//
// The proof covers a fixed, unambiguous byte layout:
//
//	[1-byte layout version] [8-byte big-endian batch ID] [32-byte ticket ID]
//
// The layout is part of the protocol: any change invalidates every
// previously issued proof, so a change must bump the version byte and
// keep the old layout verifiable.
//
// Both record types are append-or-mutate-in-place, never deleted:
// batches and redeemed tickets remain in state as the audit trail for
// historical redemptions.
package credential
