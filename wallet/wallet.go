// Package wallet provisions the recipient identity the gate settles into:
// a generated keypair and its derived settlement token account. Provisioning
// runs once at process start, before the server accepts traffic.
package wallet

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/warden-labs/paygate/logger"
	"github.com/warden-labs/paygate/types"
)

// AirdropClient is the slice of the RPC surface bootstrap needs.
// *rpc.Client satisfies it.
type AirdropClient interface {
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error)
}

// Identity holds the recipient keypair and derived settlement account. The
// private key never leaves this struct; only the public addresses are
// exposed.
type Identity struct {
	key        solana.PrivateKey
	wallet     solana.PublicKey
	settlement solana.PublicKey
}

// Wallet returns the recipient's public address.
func (id *Identity) Wallet() solana.PublicKey { return id.wallet }

// SettlementAccount returns the token account payments must land in.
func (id *Identity) SettlementAccount() solana.PublicKey { return id.settlement }

// Provision generates a fresh keypair, derives the associated token account
// for mint, and on test clusters requests an airdrop so the wallet has fee
// float. Airdrop failure is logged and tolerated; identity failure is not.
func Provision(ctx context.Context, client AirdropClient, mint solana.PublicKey, network types.Network, log logger.Logger) (*Identity, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, types.Wrap(types.KindNotReady, "recipient keypair generation failed", err)
	}
	wallet := key.PublicKey()

	settlement, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return nil, types.Wrap(types.KindNotReady, "settlement account derivation failed", err)
	}

	if client != nil && network.IsTestnet() {
		if _, err := client.RequestAirdrop(ctx, wallet, solana.LAMPORTS_PER_SOL, rpc.CommitmentConfirmed); err != nil {
			log.Warn("airdrop failed, continuing without fee float", "wallet", wallet.String(), "error", err)
		} else {
			log.Info("airdropped fee float to recipient wallet", "wallet", wallet.String())
		}
	}

	log.Info("recipient identity provisioned",
		"wallet", wallet.String(),
		"settlementAccount", settlement.String())

	return &Identity{key: key, wallet: wallet, settlement: settlement}, nil
}

// Requirement builds the process-wide payment requirement settling into this
// identity.
func (id *Identity) Requirement(mint solana.PublicKey, amount uint64, decimals int32, network types.Network, message string) *types.Requirement {
	return &types.Requirement{
		Asset:             mint.String(),
		Recipient:         id.wallet.String(),
		SettlementAccount: id.settlement.String(),
		Amount:            amount,
		Decimals:          decimals,
		Network:           network,
		Message:           message,
	}
}
