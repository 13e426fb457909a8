// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

// Command turnstile runs the ticketing contract against a local
// file-backed state store, for development and for exercising the full
// wire surface without a chain host.
//
// The state file holds the contract's key-value store as deterministic
// CBOR. Each subcommand loads the file, executes exactly one contract
// call, and writes the file back atomically. Entropy comes from the
// operating system rather than enclave hardware, so credentials minted
// here are for development only.
package main
