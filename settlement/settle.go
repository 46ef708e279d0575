// Package settlement broadcasts verified transactions and waits for them to
// reach a configured commitment level.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/warden-labs/paygate/logger"
	"github.com/warden-labs/paygate/types"
)

// RPCClient is the slice of the Solana RPC surface the submitter needs.
// *rpc.Client satisfies it; tests inject fakes.
type RPCClient interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Submitter broadcasts transactions and polls for confirmation. It holds no
// per-request state and is safe for concurrent use.
type Submitter struct {
	client       RPCClient
	commitment   types.Commitment
	timeout      time.Duration
	pollInterval time.Duration
	log          logger.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithCommitment sets the confirmation level settlements wait for.
func WithCommitment(c types.Commitment) Option {
	return func(s *Submitter) { s.commitment = c }
}

// WithTimeout bounds the confirmation poll.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) { s.timeout = d }
}

// WithPollInterval sets the delay between signature status lookups.
func WithPollInterval(d time.Duration) Option {
	return func(s *Submitter) { s.pollInterval = d }
}

// WithLogger sets the submitter's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) { s.log = l }
}

// New builds a Submitter. The default commitment is confirmed: stronger than
// processed, without paying finality latency on every request.
func New(client RPCClient, opts ...Option) *Submitter {
	s := &Submitter{
		client:       client,
		commitment:   types.CommitmentConfirmed,
		timeout:      60 * time.Second,
		pollInterval: 3 * time.Second,
		log:          logger.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commitment returns the configured confirmation level.
func (s *Submitter) Commitment() types.Commitment { return s.commitment }

// Submit broadcasts tx and blocks until it reaches the configured commitment
// or the timeout elapses. The confirmation wait runs on a context detached
// from the caller's: a client disconnect must not abandon a transaction that
// already has independent existence on the network.
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction) (*types.Receipt, error) {
	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpcCommitment(s.commitment),
	})
	if err != nil {
		return nil, classifyBroadcastError(err)
	}

	s.log.Debug("transaction broadcast", "signature", sig.String())

	return s.awaitConfirmation(context.WithoutCancel(ctx), sig)
}

// Confirm performs a single confirmation lookup for an already-broadcast
// signature. Callers that received a ConfirmationTimeout re-check here
// instead of resubmitting.
func (s *Submitter) Confirm(ctx context.Context, signature string) (*types.Receipt, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, types.Wrap(types.KindBadEncoding, "signature is not valid base58", err)
	}

	out, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, types.Wrap(types.KindNetworkUnavailable, "signature status lookup failed", err)
	}

	st := statusOf(out)
	if st == nil {
		return nil, types.E(types.KindConfirmationTimeout,
			fmt.Sprintf("signature %s not yet observed by the cluster", sig))
	}
	return s.receiptFrom(sig, st)
}

func (s *Submitter) awaitConfirmation(ctx context.Context, sig solana.Signature) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, types.E(types.KindConfirmationTimeout,
				fmt.Sprintf("confirmation for %s not observed within %s; re-check the same signature, do not resubmit", sig, s.timeout))
		case <-ticker.C:
			out, err := s.client.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				// Transient lookup failures keep polling until the deadline.
				s.log.Warn("signature status lookup failed", "signature", sig.String(), "error", err)
				continue
			}

			st := statusOf(out)
			if st == nil {
				continue
			}

			receipt, err := s.receiptFrom(sig, st)
			if err != nil {
				var pe *types.Error
				if errors.As(err, &pe) && pe.Kind == types.KindConfirmationTimeout {
					continue // observed, but below the target level
				}
				return nil, err
			}
			return receipt, nil
		}
	}
}

// receiptFrom turns an observed signature status into a receipt, or an error
// if the transaction failed on chain or has not reached the target level.
func (s *Submitter) receiptFrom(sig solana.Signature, st *rpc.SignatureStatusesResult) (*types.Receipt, error) {
	if st.Err != nil {
		return nil, types.E(types.KindBroadcastRejected,
			fmt.Sprintf("transaction %s failed on chain: %v", sig, st.Err))
	}

	level := commitmentOf(st.ConfirmationStatus)
	if !level.AtLeast(s.commitment) {
		return nil, types.E(types.KindConfirmationTimeout,
			fmt.Sprintf("signature %s observed at %s, below required %s", sig, level, s.commitment))
	}

	return &types.Receipt{
		Signature:   sig.String(),
		Level:       level,
		ConfirmedAt: time.Now().UTC(),
	}, nil
}

func statusOf(out *rpc.GetSignatureStatusesResult) *rpc.SignatureStatusesResult {
	if out == nil || len(out.Value) == 0 {
		return nil
	}
	return out.Value[0]
}

// classifyBroadcastError separates network-level rejections (bad blockhash,
// insufficient fee-payer balance, duplicate signature) from transport
// failures the caller may simply retry.
func classifyBroadcastError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return types.Wrap(types.KindBroadcastRejected, "cluster rejected transaction", err)
	}
	return types.Wrap(types.KindNetworkUnavailable, "broadcast did not reach the cluster", err)
}

func rpcCommitment(c types.Commitment) rpc.CommitmentType {
	switch c {
	case types.CommitmentProcessed:
		return rpc.CommitmentProcessed
	case types.CommitmentFinalized:
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

func commitmentOf(status rpc.ConfirmationStatusType) types.Commitment {
	switch status {
	case rpc.ConfirmationStatusProcessed:
		return types.CommitmentProcessed
	case rpc.ConfirmationStatusConfirmed:
		return types.CommitmentConfirmed
	case rpc.ConfirmationStatusFinalized:
		return types.CommitmentFinalized
	}
	return ""
}
