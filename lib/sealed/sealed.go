// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/turnstile-systems/turnstile/lib/secret"
)

// Identity holds an age x25519 identity for the enclave. The private
// half lives in a secret.Buffer; the recipient string is safe to publish
// and is what batches are sealed to.
//
// The caller must call Close when the identity is no longer needed.
type Identity struct {
	// Private is the secret key in AGE-SECRET-KEY-1... format, held
	// in mmap memory outside the Go heap. Never logged, never stored
	// in plaintext contract state.
	Private *secret.Buffer

	// Recipient is the corresponding public key in age1... format.
	Recipient string
}

// Close releases the private key memory. Idempotent.
func (i *Identity) Close() error {
	if i.Private != nil {
		return i.Private.Close()
	}
	return nil
}

// GenerateIdentity generates a new age x25519 identity. The caller must
// call Close on the result when done.
func GenerateIdentity() (*Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating age identity: %w", err)
	}

	// Move the private key into mmap-backed memory immediately. The
	// string returned by identity.String() is heap-allocated and will
	// be GC'd; the buffer is the durable copy.
	private, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}

	return &Identity{
		Private:   private,
		Recipient: identity.Recipient().String(),
	}, nil
}

// Seal encrypts plaintext to the recipient's age public key and returns
// base64-encoded ciphertext suitable for a CBOR text field.
func Seal(plaintext []byte, recipientKey string) (string, error) {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return "", fmt.Errorf("sealed: parsing recipient key: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return "", fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("sealed: finalizing encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Unseal decrypts base64-encoded ciphertext with the given identity.
// The identity is borrowed and not closed. The plaintext is returned in
// a secret.Buffer the caller must close.
func Unseal(ciphertext string, identity *secret.Buffer) (*secret.Buffer, error) {
	// age requires the identity as a string; the heap copy is brief
	// and call-scoped.
	parsed, err := age.ParseX25519Identity(identity.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identity: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("sealed: decoding ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), parsed)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("sealed: ciphertext held no plaintext")
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("sealed: protecting plaintext: %w", err)
	}
	return buffer, nil
}

// ValidateRecipient checks that a string is a well-formed age x25519
// public key. Used when recording the enclave recipient at contract
// instantiation, before any batch depends on it.
func ValidateRecipient(recipientKey string) error {
	if _, err := age.ParseX25519Recipient(recipientKey); err != nil {
		return fmt.Errorf("sealed: invalid recipient key: %w", err)
	}
	return nil
}
