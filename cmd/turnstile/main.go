// Copyright 2026 The Turnstile Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/turnstile-systems/turnstile/lib/codec"
	"github.com/turnstile-systems/turnstile/lib/contract"
	"github.com/turnstile-systems/turnstile/lib/sealed"
	"github.com/turnstile-systems/turnstile/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch os.Args[1] {
	case "keygen":
		return runKeygen()
	case "init":
		return runInit(os.Args[2:])
	case "issue-batch":
		return runIssueBatch(os.Args[2:])
	case "issue-ticket":
		return runIssueTicket(os.Args[2:])
	case "redeem":
		return runRedeem(os.Args[2:])
	case "batch":
		return runBatchQuery(os.Args[2:])
	case "ticket":
		return runTicketQuery(os.Args[2:])
	case "issuer":
		return runIssuerQuery(os.Args[2:])
	case "version":
		fmt.Printf("turnstile %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: turnstile <subcommand> [flags]

Subcommands:
  keygen        Generate an age identity for sealed key custody
  init          Instantiate contract state
  issue-batch   Create a ticket batch
  issue-ticket  Mint a ticket credential from a batch
  redeem        Redeem a ticket credential
  batch         Show a batch's public record
  ticket        Show a ticket's redemption status
  issuer        List batches created by an issuer
  version       Print version information

Run 'turnstile <subcommand> --help' for subcommand flags.
`)
}

// stateFlags registers the flags every state-touching subcommand takes.
func stateFlags(flags *pflag.FlagSet) (statePath, caller, identityPath *string) {
	statePath = flags.String("state", "turnstile.state", "path to the contract state file")
	caller = flags.String("as", "creator", "caller address for this contract call")
	identityPath = flags.String("identity", "", "path to an age identity file (sealed custody only)")
	return statePath, caller, identityPath
}

// runKeygen generates an age identity for sealed custody. The recipient
// key goes to stdout for passing to init; the private key goes to
// stderr for safekeeping in an identity file.
func runKeygen() error {
	identity, err := sealed.GenerateIdentity()
	if err != nil {
		return err
	}
	defer identity.Close()

	fmt.Fprintf(os.Stderr, "# Private key (keep this secret, store in the identity file):\n")
	fmt.Fprintf(os.Stderr, "%s\n", identity.Private.String())
	fmt.Fprintf(os.Stdout, "%s\n", identity.Recipient)
	return nil
}

func runInit(args []string) error {
	flags := pflag.NewFlagSet("init", pflag.ExitOnError)
	statePath, caller, _ := stateFlags(flags)
	recipient := flags.String("enclave-recipient", "", "age recipient for sealed key custody (optional)")
	flags.Parse(args)

	state, err := loadState(*statePath, *caller, "")
	if err != nil {
		return err
	}

	raw, err := codec.Marshal(&contract.InstantiateMsg{EnclaveRecipient: *recipient})
	if err != nil {
		return err
	}
	if err := contract.Instantiate(state.env(), raw); err != nil {
		return err
	}
	if err := state.save(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Instantiated %s (owner %s)\n", *statePath, *caller)
	return nil
}

func runIssueBatch(args []string) error {
	flags := pflag.NewFlagSet("issue-batch", pflag.ExitOnError)
	statePath, caller, _ := stateFlags(flags)
	capacity := flags.Uint32("capacity", 0, "number of tickets in the batch (required)")
	custody := flags.String("custody", "issuer", `key custody: "issuer" or "sealed"`)
	flags.Parse(args)

	if *capacity == 0 {
		flags.Usage()
		return fmt.Errorf("--capacity is required")
	}

	result, state, err := executeOne(*statePath, *caller, "", &contract.ExecuteMsg{
		IssueBatch: &contract.IssueBatchMsg{Capacity: *capacity, Custody: *custody},
	})
	if err != nil {
		return err
	}
	if err := state.save(); err != nil {
		return err
	}

	created := result.BatchCreated
	fmt.Printf("Batch %d created (%s custody, capacity %d)\n", created.BatchID, created.Custody, *capacity)
	fmt.Printf("Issuer public key: %s\n", hex.EncodeToString(created.IssuerPublicKey))
	if created.SigningKey != nil {
		fmt.Fprintf(os.Stderr, "# Signing key (shown once, never stored):\n")
		fmt.Fprintf(os.Stderr, "%s\n", hex.EncodeToString(created.SigningKey))
	}
	return nil
}

func runIssueTicket(args []string) error {
	flags := pflag.NewFlagSet("issue-ticket", pflag.ExitOnError)
	statePath, caller, identityPath := stateFlags(flags)
	batchID := flags.Uint64("batch", 0, "batch to issue from (required)")
	signingKeyHex := flags.String("signing-key", "", "batch signing key in hex (issuer custody only)")
	flags.Parse(args)

	if *batchID == 0 {
		flags.Usage()
		return fmt.Errorf("--batch is required")
	}
	var signingKey []byte
	if *signingKeyHex != "" {
		var err error
		if signingKey, err = hex.DecodeString(*signingKeyHex); err != nil {
			return fmt.Errorf("decoding --signing-key: %w", err)
		}
	}

	result, state, err := executeOne(*statePath, *caller, *identityPath, &contract.ExecuteMsg{
		IssueTicket: &contract.IssueTicketMsg{BatchID: *batchID, SigningKey: signingKey},
	})
	if err != nil {
		return err
	}
	if err := state.save(); err != nil {
		return err
	}

	ticket := result.TicketIssued
	fmt.Printf("Ticket issued from batch %d\n", ticket.BatchID)
	fmt.Printf("Ticket ID: %s\n", hex.EncodeToString(ticket.TicketID))
	fmt.Printf("Proof:     %s\n", hex.EncodeToString(ticket.Proof))
	return nil
}

func runRedeem(args []string) error {
	flags := pflag.NewFlagSet("redeem", pflag.ExitOnError)
	statePath, caller, _ := stateFlags(flags)
	batchID := flags.Uint64("batch", 0, "batch the ticket belongs to (required)")
	ticketHex := flags.String("ticket", "", "ticket ID in hex (required)")
	proofHex := flags.String("proof", "", "ticket proof in hex (required)")
	flags.Parse(args)

	if *batchID == 0 || *ticketHex == "" || *proofHex == "" {
		flags.Usage()
		return fmt.Errorf("--batch, --ticket, and --proof are required")
	}
	ticketID, err := hex.DecodeString(*ticketHex)
	if err != nil {
		return fmt.Errorf("decoding --ticket: %w", err)
	}
	proof, err := hex.DecodeString(*proofHex)
	if err != nil {
		return fmt.Errorf("decoding --proof: %w", err)
	}

	result, state, err := executeOne(*statePath, *caller, "", &contract.ExecuteMsg{
		Redeem: &contract.RedeemMsg{BatchID: *batchID, TicketID: ticketID, Proof: proof},
	})
	if err != nil {
		return err
	}
	if err := state.save(); err != nil {
		return err
	}

	redeemedAt := time.Unix(result.Redeemed.RedeemedAt, 0).UTC()
	fmt.Printf("Redeemed ticket %s at %s\n", *ticketHex, redeemedAt.Format(time.RFC3339))
	return nil
}

func runBatchQuery(args []string) error {
	flags := pflag.NewFlagSet("batch", pflag.ExitOnError)
	statePath, caller, _ := stateFlags(flags)
	batchID := flags.Uint64("batch", 0, "batch to show (required)")
	flags.Parse(args)

	if *batchID == 0 {
		flags.Usage()
		return fmt.Errorf("--batch is required")
	}

	var info contract.BatchInfo
	if err := queryOne(*statePath, *caller, &contract.QueryMsg{
		Batch: &contract.BatchQuery{BatchID: *batchID},
	}, &info); err != nil {
		return err
	}

	fmt.Printf("Batch %d\n", info.BatchID)
	fmt.Printf("  Issuer public key: %s\n", hex.EncodeToString(info.IssuerPublicKey))
	fmt.Printf("  Capacity:          %d\n", info.Capacity)
	fmt.Printf("  Issued:            %d\n", info.IssuedCount)
	fmt.Printf("  Sold out:          %v\n", info.SoldOut)
	fmt.Printf("  Custody:           %s\n", info.Custody)
	fmt.Printf("  Created by:        %s\n", info.CreatedBy)
	fmt.Printf("  Created at:        %s\n", time.Unix(info.CreatedAt, 0).UTC().Format(time.RFC3339))
	return nil
}

func runTicketQuery(args []string) error {
	flags := pflag.NewFlagSet("ticket", pflag.ExitOnError)
	statePath, caller, _ := stateFlags(flags)
	batchID := flags.Uint64("batch", 0, "batch the ticket belongs to (required)")
	ticketHex := flags.String("ticket", "", "ticket ID in hex (required)")
	flags.Parse(args)

	if *batchID == 0 || *ticketHex == "" {
		flags.Usage()
		return fmt.Errorf("--batch and --ticket are required")
	}
	ticketID, err := hex.DecodeString(*ticketHex)
	if err != nil {
		return fmt.Errorf("decoding --ticket: %w", err)
	}

	var status contract.TicketStatusResult
	if err := queryOne(*statePath, *caller, &contract.QueryMsg{
		TicketStatus: &contract.TicketStatusQuery{BatchID: *batchID, TicketID: ticketID},
	}, &status); err != nil {
		return err
	}

	fmt.Printf("Ticket %s: %s\n", *ticketHex, status.Status)
	if status.RedeemedAt != 0 {
		fmt.Printf("  Redeemed at: %s\n", time.Unix(status.RedeemedAt, 0).UTC().Format(time.RFC3339))
	}
	return nil
}

func runIssuerQuery(args []string) error {
	flags := pflag.NewFlagSet("issuer", pflag.ExitOnError)
	statePath, caller, _ := stateFlags(flags)
	issuer := flags.String("issuer", "", "issuer address (required)")
	flags.Parse(args)

	if *issuer == "" {
		flags.Usage()
		return fmt.Errorf("--issuer is required")
	}

	var result contract.IssuerBatchesResult
	if err := queryOne(*statePath, *caller, &contract.QueryMsg{
		IssuerBatches: &contract.IssuerBatchesQuery{Issuer: *issuer},
	}, &result); err != nil {
		return err
	}

	if len(result.BatchIDs) == 0 {
		fmt.Printf("No batches created by %s\n", *issuer)
		return nil
	}
	fmt.Printf("Batches created by %s:\n", *issuer)
	for _, id := range result.BatchIDs {
		fmt.Printf("  %d\n", id)
	}
	return nil
}

// executeOne loads state, runs one execute message, and returns the
// decoded result along with the state for saving.
func executeOne(statePath, caller, identityPath string, msg *contract.ExecuteMsg) (*contract.ExecuteResult, *fileState, error) {
	state, err := loadState(statePath, caller, identityPath)
	if err != nil {
		return nil, nil, err
	}

	raw, err := codec.Marshal(msg)
	if err != nil {
		return nil, nil, err
	}
	response, err := contract.Execute(state.env(), raw)
	if err != nil {
		return nil, nil, err
	}

	var result contract.ExecuteResult
	if err := codec.Unmarshal(response, &result); err != nil {
		return nil, nil, fmt.Errorf("decoding execute result: %w", err)
	}
	return &result, state, nil
}

// queryOne loads state and runs one read-only query. Queries never
// save.
func queryOne(statePath, caller string, msg *contract.QueryMsg, out any) error {
	state, err := loadState(statePath, caller, "")
	if err != nil {
		return err
	}

	raw, err := codec.Marshal(msg)
	if err != nil {
		return err
	}
	response, err := contract.Query(state.env(), raw)
	if err != nil {
		return err
	}
	return codec.Unmarshal(response, out)
}
