// Package paygate implements a pay-per-call gating layer for HTTP endpoints
// backed by Solana payments: it issues machine-readable 402 challenges,
// validates client-submitted payment proofs, broadcasts them, and confirms
// settlement before the protected handler runs.
package paygate

import (
	"context"
	"fmt"
	"time"

	"github.com/warden-labs/paygate/codec"
	"github.com/warden-labs/paygate/logger"
	"github.com/warden-labs/paygate/metrics"
	"github.com/warden-labs/paygate/settlement"
	"github.com/warden-labs/paygate/types"
	"github.com/warden-labs/paygate/verification"
)

// Version information.
const (
	Version         = "1.0.0"
	ProtocolVersion = types.ProtocolVersion
)

// ConsumptionLedger deduplicates payment signatures across requests so a
// single signed transaction cannot unlock more than one call. Implementations
// own their concurrency control.
type ConsumptionLedger interface {
	// Consumed reports whether the signature has already paid for a request.
	Consumed(signature string) bool

	// Consume marks the signature as spent. It returns false if another
	// request consumed it first.
	Consume(signature string) bool
}

// Gate owns the process-wide payment requirement and drives the
// decode -> match -> settle pipeline for each proof. All fields are set at
// construction and never mutated, so a Gate is safe for concurrent use.
type Gate struct {
	requirement *types.Requirement
	submitter   *settlement.Submitter
	ledger      ConsumptionLedger
	log         logger.Logger
	metrics     metrics.Recorder

	settleOpts []settlement.Option
}

// New builds a Gate for the given requirement and RPC client. The
// requirement is validated up front: a Gate that constructs successfully is
// ready to gate requests.
func New(requirement *types.Requirement, client settlement.RPCClient, opts ...Option) (*Gate, error) {
	if requirement == nil {
		return nil, types.E(types.KindNotReady, "payment requirement is not configured")
	}
	if err := requirement.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, types.E(types.KindNotReady, "rpc client is not configured")
	}

	g := &Gate{
		requirement: requirement,
		log:         logger.Noop{},
		metrics:     metrics.Noop{},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.settleOpts = append(g.settleOpts, settlement.WithLogger(g.log))
	g.submitter = settlement.New(client, g.settleOpts...)

	return g, nil
}

// Requirement returns the immutable payment requirement. Nil-safe, mirroring
// Ready.
func (g *Gate) Requirement() *types.Requirement {
	if g == nil {
		return nil
	}
	return g.requirement
}

// Ready reports whether the gate can process proofs. A nil Gate is not
// ready, which lets callers hold a Gate pointer that is only assigned once
// bootstrap completes.
func (g *Gate) Ready() bool {
	return g != nil && g.requirement != nil && g.submitter != nil
}

// Process runs one proof through the full pipeline: envelope decode,
// transaction decode, instruction match, broadcast and confirmation. On
// success it returns the settlement receipt; every failure carries a typed
// kind the transport layer maps to a status code.
func (g *Gate) Process(ctx context.Context, proofHeader string) (*types.Receipt, error) {
	env, err := codec.DecodeHeader(proofHeader)
	if err != nil {
		return nil, err
	}
	if env.Scheme != types.SchemeExact {
		return nil, types.E(types.KindBadEnvelope, fmt.Sprintf("unsupported payment scheme %q", env.Scheme))
	}
	if env.Network != g.requirement.Network.String() {
		return nil, types.E(types.KindBadEnvelope,
			fmt.Sprintf("proof targets network %q, expected %q", env.Network, g.requirement.Network))
	}

	tx, err := codec.DecodeTransaction(env)
	if err != nil {
		return nil, err
	}

	match, err := verification.FindTransfer(tx, g.requirement)
	if err != nil {
		return nil, err
	}

	var sig string
	if len(tx.Signatures) > 0 {
		sig = tx.Signatures[0].String()
	}
	if g.ledger != nil && sig != "" && g.ledger.Consumed(sig) {
		return nil, types.E(types.KindReplayedPayment, "payment signature already consumed")
	}

	g.log.Debug("payment instruction matched",
		"instruction", match.InstructionIndex,
		"amount", match.Amount,
		"source", match.Source.String())

	start := time.Now()
	receipt, err := g.submitter.Submit(ctx, tx)
	g.metrics.ObserveLatency("settle", g.requirement.Network.String(), time.Since(start))
	if err != nil {
		return nil, err
	}

	if g.ledger != nil && sig != "" && !g.ledger.Consume(sig) {
		// Lost the race to a concurrent request carrying the same transaction.
		return nil, types.E(types.KindReplayedPayment, "payment signature already consumed")
	}

	if !match.Owner.IsZero() {
		receipt.Payer = match.Owner.String()
	} else {
		receipt.Payer = match.Source.String()
	}

	g.log.Info("payment verified",
		"signature", receipt.Signature,
		"amount", match.Amount,
		"level", receipt.Level)

	return receipt, nil
}

// Confirm re-checks an already-broadcast signature. Clients that hit a
// ConfirmationTimeout call this instead of resubmitting the transaction.
func (g *Gate) Confirm(ctx context.Context, signature string) (*types.Receipt, error) {
	return g.submitter.Confirm(ctx, signature)
}
