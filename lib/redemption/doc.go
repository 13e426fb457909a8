// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Package redemption consumes ticket credentials at the venue gate.
//
// Redemption is exactly-once: a credential verifies, transitions from
// valid to redeemed in the same call, and every later attempt fails
// with the original redemption timestamp. The presented proof is
// checked against the batch's issuer public key before any state
// changes, so a forged or tampered credential leaves storage untouched.
//
// Anyone may redeem — possession of a genuine, unused credential is the
// authorization. The caller's address is not recorded on the ticket.
package redemption
