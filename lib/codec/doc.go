// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Turnstile's standard CBOR encoding configuration.
//
// Every byte sequence the contract produces — persisted batch and ticket
// records, execute and query messages, redemption receipts — goes through
// this package. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no indefinite-length
// items. Same logical data always produces identical bytes, which the
// redemption protocol depends on: signatures and ticket identifiers must
// verify identically across re-execution of the same call on different
// nodes.
//
// Wire and storage types use `cbor:"N,keyasint"` struct tags. Integer keys
// keep records compact and make field numbering an explicit, stable part
// of the storage contract.
package codec
