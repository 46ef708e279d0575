// Package challenge builds the payment-required response body.
package challenge

import "github.com/warden-labs/paygate/types"

// Issue builds the 402 challenge body for a requirement. It is a pure
// function: no side effects, identical output for identical input.
func Issue(req *types.Requirement) *types.ChallengeBody {
	return &types.ChallengeBody{
		Payment: types.ChallengePayment{
			Recipient:         req.Recipient,
			SettlementAccount: req.SettlementAccount,
			Asset:             req.Asset,
			AmountBaseUnits:   req.Amount,
			AmountDisplay:     req.DisplayAmount(),
			Network:           req.Network.String(),
			Message:           req.Message,
		},
	}
}
