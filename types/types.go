package types

import (
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ProtocolVersion is the payment protocol version carried in proof envelopes.
const ProtocolVersion = 1

// SchemeExact is the only payment scheme this layer accepts: the transaction
// must carry a transfer of at least the required amount to the settlement
// account.
const SchemeExact = "exact"

var validate = validator.New()

// Requirement is the immutable per-process payment requirement. It is built
// once at startup and read-only afterwards.
type Requirement struct {
	// Asset is the SPL token mint address (base58).
	Asset string `json:"asset" validate:"required"`

	// Recipient is the wallet that owns the settlement account (base58).
	Recipient string `json:"recipient" validate:"required"`

	// SettlementAccount is the token account that must receive the transfer
	// for a payment to qualify (base58).
	SettlementAccount string `json:"settlementAccount" validate:"required"`

	// Amount is the minimum payment in the asset's smallest base unit.
	Amount uint64 `json:"amountBaseUnits" validate:"gt=0"`

	// Decimals is the asset's base-unit exponent, used only for the
	// human-readable display amount.
	Decimals int32 `json:"decimals"`

	// Network names the cluster payments must land on (e.g. "solana-devnet").
	Network Network `json:"network" validate:"required"`

	// Message is the human-readable payment prompt included in challenges.
	Message string `json:"message"`
}

// Validate checks the Requirement's struct tags.
func (r *Requirement) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &Error{Kind: KindNotReady, Message: "invalid payment requirement", Err: err}
	}
	return nil
}

// DisplayAmount renders Amount shifted by the asset's decimals, e.g.
// 100 base units of a 6-decimal token as "0.0001".
func (r *Requirement) DisplayAmount() string {
	v := new(big.Int).SetUint64(r.Amount)
	return decimal.NewFromBigInt(v, -r.Decimals).String()
}

// ProofEnvelope is the wire value delivered in the payment proof header: a
// small versioned structure wrapping a serialized transaction. It lives for
// the duration of one request and is never persisted. The version field's
// wire tag is "x402Version", the name x402 clients send.
type ProofEnvelope struct {
	ProtocolVersion int          `json:"x402Version" validate:"gt=0"`
	Scheme          string       `json:"scheme" validate:"required"`
	Network         string       `json:"network" validate:"required"`
	Payload         ProofPayload `json:"payload"`
}

// ProofPayload carries the base64-encoded signed transaction bytes.
type ProofPayload struct {
	SerializedTransaction string `json:"serializedTransaction" validate:"required"`
}

// Validate checks the envelope's struct tags.
func (e *ProofEnvelope) Validate() error {
	if err := validate.Struct(e); err != nil {
		return &Error{Kind: KindBadEnvelope, Message: "incomplete proof envelope", Err: err}
	}
	return nil
}

// ChallengeBody is the payment-required response body returned with 402 when
// no proof is presented.
type ChallengeBody struct {
	Payment ChallengePayment `json:"payment"`
}

// ChallengePayment describes how much, to whom, and in which asset and
// network a caller must pay.
type ChallengePayment struct {
	Recipient         string `json:"recipient"`
	SettlementAccount string `json:"settlementAccount"`
	Asset             string `json:"asset"`
	AmountBaseUnits   uint64 `json:"amountBaseUnits"`
	AmountDisplay     string `json:"amountDisplay"`
	Network           string `json:"network"`
	Message           string `json:"message"`
}

// RejectionBody is the response body for any failed verification or
// settlement attempt.
type RejectionBody struct {
	Error   string `json:"error"`
	Kind    Kind   `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// Commitment is the confirmation durability a settlement waits for.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// rank orders commitments from weakest to strongest.
func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	}
	return 0
}

// AtLeast reports whether c is as durable as min.
func (c Commitment) AtLeast(min Commitment) bool {
	return c.rank() >= min.rank()
}

// Receipt is the result of a successful broadcast+confirm cycle. It is
// attached to the request context for downstream consumers and is not
// persisted by this layer.
type Receipt struct {
	Signature   string     `json:"signature"`
	Level       Commitment `json:"level"`
	ConfirmedAt time.Time  `json:"confirmedAt"`

	// Payer is the wallet that authorized the matched transfer. Empty on
	// receipts produced by a confirmation lookup, where the original
	// instruction is no longer in hand.
	Payer string `json:"payer,omitempty"`
}
