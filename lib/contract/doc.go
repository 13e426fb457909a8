// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package contract is the wire surface of the ticketing contract: the
// CBOR message types and the three host entry points — Instantiate,
// Execute, Query.
//
// Execute and Query messages are single-arm unions: exactly one field
// of the union is set, naming the operation. A message with zero or
// multiple arms is rejected before any engine runs. All encoding is
// deterministic CBOR with integer keys, so the same message always has
// one byte representation.
//
// The package holds no business logic. Each arm decodes, validates
// shape, and hands off to the issuance or redemption engine; results
// are re-encoded for the host.
package contract
