// Package middleware turns a protected http.Handler into a pay-per-call
// resource. Each request traverses the gate's state machine exactly once:
// no proof header means a 402 challenge, a failing proof means a typed
// rejection, and a settled proof passes through with the receipt attached to
// the request context.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/warden-labs/paygate/challenge"
	"github.com/warden-labs/paygate/logger"
	"github.com/warden-labs/paygate/metrics"
	"github.com/warden-labs/paygate/types"
)

// Header is the designated payment proof header.
const Header = "X-Payment"

// Processor runs a payment proof through decode, match, and settlement.
// *paygate.Gate satisfies it.
type Processor interface {
	// Ready reports whether the recipient identity and requirement are
	// initialized. The gate fails closed while this is false.
	Ready() bool

	// Requirement returns the process-wide payment requirement.
	Requirement() *types.Requirement

	// Process validates and settles one proof, returning its receipt.
	Process(ctx context.Context, proofHeader string) (*types.Receipt, error)
}

type contextKey struct{}

var receiptKey contextKey

// Option configures the middleware.
type Option func(*gate)

// WithLogger sets the middleware logger.
func WithLogger(l logger.Logger) Option {
	return func(g *gate) { g.log = l }
}

// WithMetrics sets the outcome recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(g *gate) { g.metrics = r }
}

type gate struct {
	proc    Processor
	log     logger.Logger
	metrics metrics.Recorder
}

// New wraps protected handlers with payment gating.
func New(proc Processor, opts ...Option) func(http.Handler) http.Handler {
	g := &gate{
		proc:    proc,
		log:     logger.Noop{},
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next)
		})
	}
}

func (g *gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if !g.proc.Ready() {
		g.log.Error("gate not initialized, refusing request", "path", r.URL.Path)
		g.metrics.IncOutcome(metrics.OutcomeNotReady, g.network())
		WriteRejection(w, types.E(types.KindNotReady, "payment gate is not initialized"))
		return
	}

	proof := r.Header.Get(Header)
	if proof == "" {
		g.metrics.IncOutcome(metrics.OutcomeChallenged, g.network())
		writeJSON(w, http.StatusPaymentRequired, challenge.Issue(g.proc.Requirement()))
		return
	}

	receipt, err := g.proc.Process(r.Context(), proof)
	if err != nil {
		g.log.Warn("payment rejected",
			"path", r.URL.Path,
			"kind", string(types.KindOf(err)),
			"error", err)
		g.metrics.IncOutcome(metrics.OutcomeRejected, g.network())
		WriteRejection(w, err)
		return
	}

	g.metrics.IncOutcome(metrics.OutcomeVerified, g.network())
	next.ServeHTTP(w, r.WithContext(WithReceipt(r.Context(), receipt)))
}

func (g *gate) network() string {
	if req := g.proc.Requirement(); req != nil {
		return req.Network.String()
	}
	return "unknown"
}

// WithReceipt attaches a settlement receipt to the context.
func WithReceipt(ctx context.Context, receipt *types.Receipt) context.Context {
	return context.WithValue(ctx, receiptKey, receipt)
}

// ReceiptFromContext extracts the settlement receipt attached by the gate.
func ReceiptFromContext(ctx context.Context) (*types.Receipt, bool) {
	receipt, ok := ctx.Value(receiptKey).(*types.Receipt)
	return receipt, ok
}

// StatusFor maps failure kinds to status codes. Client-fixable kinds come
// back 402 so the caller corrects the proof; transient network failures get
// 503, a confirmation timeout 504 so clients can tell "retry now" from "fix
// your payment".
func StatusFor(kind types.Kind) int {
	switch kind {
	case types.KindNetworkUnavailable, types.KindNotReady:
		return http.StatusServiceUnavailable
	case types.KindConfirmationTimeout:
		return http.StatusGatewayTimeout
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusPaymentRequired
	}
}

// WriteRejection writes the typed rejection body for a pipeline failure.
func WriteRejection(w http.ResponseWriter, err error) {
	var pe *types.Error
	if !errors.As(err, &pe) {
		writeJSON(w, http.StatusInternalServerError, types.RejectionBody{Error: "internal error"})
		return
	}

	body := types.RejectionBody{
		Error: pe.Message,
		Kind:  pe.Kind,
	}
	if pe.Err != nil {
		body.Details = pe.Err.Error()
	}
	writeJSON(w, StatusFor(pe.Kind), body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
