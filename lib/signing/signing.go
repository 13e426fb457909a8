// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/turnstile-systems/turnstile/lib/entropy"
	"github.com/turnstile-systems/turnstile/lib/secret"
)

const (
	// PublicKeySize is the size of an issuer public key.
	PublicKeySize = ed25519.PublicKeySize // 32 bytes

	// PrivateKeySize is the size of an issuer private key.
	PrivateKeySize = ed25519.PrivateKeySize // 64 bytes

	// ProofSize is the size of a ticket proof signature.
	ProofSize = ed25519.SignatureSize // 64 bytes

	// DigestSize is the size of a ticket identifier digest.
	DigestSize = 32
)

// Errors returned by key generation and signing.
var (
	ErrKeyGeneration = errors.New("signing: key generation failed")
	ErrSigning       = errors.New("signing: signing failed")
)

// ticketIDDomainKey is the BLAKE3 keyed-hash domain for ticket
// identifier derivation. A fixed constant — changing it invalidates
// every issued ticket ID. The bytes are the ASCII domain name,
// zero-padded to 32 bytes, so the key is inspectable in hex dumps
// without sacrificing any cryptographic property.
var ticketIDDomainKey = [32]byte{
	't', 'u', 'r', 'n', 's', 't', 'i', 'l', 'e', '.',
	't', 'i', 'c', 'k', 'e', 't', '.', 'i', 'd', '.',
	'v', '1', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// GenerateKeypair derives a fresh Ed25519 issuer keypair from the
// supplied randomness. Deterministic given the source: the same seed
// bytes always produce the same keypair, which transactional
// re-execution of a call requires.
//
// The private key is returned in a secret.Buffer; the caller must close
// it. Fails wrapping ErrKeyGeneration if the source cannot supply seed
// bytes.
func GenerateKeypair(source entropy.Source) (ed25519.PublicKey, *secret.Buffer, error) {
	seed, err := source.Bytes(ed25519.SeedSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: drawing key seed: %w", ErrKeyGeneration, err)
	}

	private := ed25519.NewKeyFromSeed(seed)
	secret.Zero(seed)
	public := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(public, private[ed25519.SeedSize:])

	buffer, err := secret.NewFromBytes(private)
	if err != nil {
		secret.Zero(private)
		return nil, nil, fmt.Errorf("%w: protecting private key: %w", ErrKeyGeneration, err)
	}

	return public, buffer, nil
}

// PublicKeyFor returns the public key corresponding to a private key
// held in a secret.Buffer. Fails wrapping ErrSigning if the buffer does
// not hold a well-formed Ed25519 private key.
func PublicKeyFor(private *secret.Buffer) (ed25519.PublicKey, error) {
	if private.Len() != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrSigning, private.Len(), PrivateKeySize)
	}
	public := make(ed25519.PublicKey, PublicKeySize)
	copy(public, private.Bytes()[ed25519.SeedSize:])
	return public, nil
}

// Sign produces an Ed25519 signature over message with the issuer
// private key. Fails wrapping ErrSigning if the key material is
// malformed.
func Sign(private *secret.Buffer, message []byte) ([]byte, error) {
	if private.Len() != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes, want %d", ErrSigning, private.Len(), PrivateKeySize)
	}
	return ed25519.Sign(ed25519.PrivateKey(private.Bytes()), message), nil
}

// Verify reports whether signature is a valid issuer signature over
// message. Pure and side-effect-free. Malformed input of any kind —
// wrong-size key, empty signature, garbage bytes — returns false rather
// than an error: a corrupt or forged credential is invalid, not fatal.
func Verify(public ed25519.PublicKey, message, signature []byte) bool {
	if len(public) != PublicKeySize {
		return false
	}
	if len(signature) != ProofSize {
		return false
	}
	return ed25519.Verify(public, message, signature)
}

// TicketDigest derives a ticket identifier from its batch and a random
// nonce: the domain-keyed BLAKE3 hash of the big-endian batch ID
// followed by the nonce. Keying the hash to the batch binds the
// identifier to it, so a credential can never replay against another
// batch, and the random nonce keeps identifiers unlinkable to issuance
// order.
func TicketDigest(batchID uint64, nonce []byte) [DigestSize]byte {
	hasher, err := blake3.NewKeyed(ticketIDDomainKey[:])
	if err != nil {
		// NewKeyed only fails for a non-32-byte key, which the
		// fixed-size domain key rules out.
		panic("signing: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	var batchBytes [8]byte
	binary.BigEndian.PutUint64(batchBytes[:], batchID)
	hasher.Write(batchBytes[:])
	hasher.Write(nonce)

	var digest [DigestSize]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
