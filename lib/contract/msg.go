// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package contract

// InstantiateMsg configures the contract at creation. The sender of the
// instantiation becomes the owner.
type InstantiateMsg struct {
	// EnclaveRecipient is the age public key sealed-custody batches
	// encrypt their signing keys to. Empty disables sealed custody.
	EnclaveRecipient string `cbor:"1,keyasint,omitempty"`
}

// ExecuteMsg is the state-changing message union. Exactly one arm must
// be set.
type ExecuteMsg struct {
	IssueBatch  *IssueBatchMsg  `cbor:"1,keyasint,omitempty"`
	IssueTicket *IssueTicketMsg `cbor:"2,keyasint,omitempty"`
	Redeem      *RedeemMsg      `cbor:"3,keyasint,omitempty"`
}

// IssueBatchMsg creates a ticket batch. Owner only.
type IssueBatchMsg struct {
	Capacity uint32 `cbor:"1,keyasint"`

	// Custody is "issuer" or "sealed".
	Custody string `cbor:"2,keyasint"`
}

// IssueTicketMsg mints one ticket from a batch. Batch creator only.
type IssueTicketMsg struct {
	BatchID uint64 `cbor:"1,keyasint"`

	// SigningKey carries the batch private key for issuer-custody
	// batches. Must be absent for sealed custody.
	SigningKey []byte `cbor:"2,keyasint,omitempty"`
}

// RedeemMsg consumes a ticket credential. Open to any caller.
type RedeemMsg struct {
	BatchID  uint64 `cbor:"1,keyasint"`
	TicketID []byte `cbor:"2,keyasint"`
	Proof    []byte `cbor:"3,keyasint"`
}

// ExecuteResult is the execution response union, mirroring the request
// arm that ran.
type ExecuteResult struct {
	BatchCreated *BatchCreated `cbor:"1,keyasint,omitempty"`
	TicketIssued *TicketIssued `cbor:"2,keyasint,omitempty"`
	Redeemed     *Redeemed     `cbor:"3,keyasint,omitempty"`
}

// BatchCreated reports a new batch.
type BatchCreated struct {
	BatchID         uint64 `cbor:"1,keyasint"`
	IssuerPublicKey []byte `cbor:"2,keyasint"`
	Custody         string `cbor:"3,keyasint"`

	// SigningKey is the batch private key, present only under issuer
	// custody and only in this response. It is never stored and cannot
	// be recovered later.
	SigningKey []byte `cbor:"4,keyasint,omitempty"`
}

// TicketIssued reports a freshly minted credential.
type TicketIssued struct {
	BatchID  uint64 `cbor:"1,keyasint"`
	TicketID []byte `cbor:"2,keyasint"`
	Proof    []byte `cbor:"3,keyasint"`
}

// Redeemed reports a consumed credential.
type Redeemed struct {
	BatchID    uint64 `cbor:"1,keyasint"`
	TicketID   []byte `cbor:"2,keyasint"`
	RedeemedAt int64  `cbor:"3,keyasint"`
}

// QueryMsg is the read-only message union. Exactly one arm must be set.
type QueryMsg struct {
	TicketStatus  *TicketStatusQuery  `cbor:"1,keyasint,omitempty"`
	Batch         *BatchQuery         `cbor:"2,keyasint,omitempty"`
	IssuerBatches *IssuerBatchesQuery `cbor:"3,keyasint,omitempty"`
}

// TicketStatusQuery asks for one ticket's redemption state.
type TicketStatusQuery struct {
	BatchID  uint64 `cbor:"1,keyasint"`
	TicketID []byte `cbor:"2,keyasint"`
}

// TicketStatusResult is the TicketStatus response.
type TicketStatusResult struct {
	Status     string `cbor:"1,keyasint"`
	RedeemedAt int64  `cbor:"2,keyasint,omitempty"`
}

// BatchQuery asks for one batch's public record.
type BatchQuery struct {
	BatchID uint64 `cbor:"1,keyasint"`
}

// BatchInfo is the Batch response. The sealed key is never included.
type BatchInfo struct {
	BatchID         uint64 `cbor:"1,keyasint"`
	IssuerPublicKey []byte `cbor:"2,keyasint"`
	Capacity        uint32 `cbor:"3,keyasint"`
	IssuedCount     uint32 `cbor:"4,keyasint"`
	SoldOut         bool   `cbor:"5,keyasint"`
	Custody         string `cbor:"6,keyasint"`
	CreatedBy       string `cbor:"7,keyasint"`
	CreatedAt       int64  `cbor:"8,keyasint"`
}

// IssuerBatchesQuery asks for the batches an issuer created.
type IssuerBatchesQuery struct {
	Issuer string `cbor:"1,keyasint"`
}

// IssuerBatchesResult is the IssuerBatches response, oldest batch first.
type IssuerBatchesResult struct {
	BatchIDs []uint64 `cbor:"1,keyasint"`
}
