package paygate

import (
	"time"

	"github.com/warden-labs/paygate/logger"
	"github.com/warden-labs/paygate/metrics"
	"github.com/warden-labs/paygate/settlement"
	"github.com/warden-labs/paygate/types"
)

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate and submitter logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gate) { g.metrics = r }
}

// WithLedger enables signature-consumption deduplication.
func WithLedger(l ConsumptionLedger) Option {
	return func(g *Gate) { g.ledger = l }
}

// WithTimeout bounds the settlement confirmation wait.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) { g.settleOpts = append(g.settleOpts, settlement.WithTimeout(d)) }
}

// WithCommitment sets the confirmation level settlements wait for.
func WithCommitment(c types.Commitment) Option {
	return func(g *Gate) { g.settleOpts = append(g.settleOpts, settlement.WithCommitment(c)) }
}

// WithPollInterval sets the delay between confirmation polls.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) { g.settleOpts = append(g.settleOpts, settlement.WithPollInterval(d)) }
}
