// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package statestore is the typed facade over the host's key-value
// storage: get/put for the contract config, batch records, ticket
// records, and the per-issuer batch index. No business logic lives here.
//
// # Key layout (v1)
//
//	ts/v1/config                                        contract config singleton
//	ts/v1/batch/<8-byte big-endian batch ID>            batch record
//	ts/v1/ticket/<8-byte batch ID><32-byte ticket ID>   ticket record
//	ts/v1/issuer/<issuer address>                       batch ID index
//
// Keys are derived deterministically from fixed-width identifiers and
// carry the layout version, so the storage schema is stable across
// contract upgrades. Values are deterministic CBOR.
//
// Absent records are (zero, false, nil) — absence is the caller's
// business rule, not a storage failure. Host read errors and corrupt
// records wrap ErrStorageRead; host write errors wrap ErrStorageWrite.
// Both are fatal for the enclosing call.
package statestore
