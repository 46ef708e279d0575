// Command payclient is a demo payer for a paygate-protected endpoint. It
// fetches the 402 challenge, builds and signs the SPL token transfer the
// challenge asks for, and retries the request with the proof header attached.
//
// The keypair must already hold a funded token account for the challenge
// asset. On devnet, fund one with `solana airdrop` plus `spl-token` mint or a
// faucet.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/warden-labs/paygate/middleware"
	"github.com/warden-labs/paygate/types"
)

func main() {
	var (
		url     = flag.String("url", "http://localhost:5000/api/access", "protected endpoint to pay for")
		rpcURL  = flag.String("rpc", rpc.DevNet_RPC, "solana rpc endpoint")
		keyPath = flag.String("keypair", "", "path to the payer keypair json (required)")
	)
	flag.Parse()

	if err := run(context.Background(), *url, *rpcURL, *keyPath); err != nil {
		fmt.Fprintln(os.Stderr, "payclient:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, url, rpcURL, keyPath string) error {
	if keyPath == "" {
		return fmt.Errorf("-keypair is required")
	}
	payer, err := solana.PrivateKeyFromSolanaKeygenFile(keyPath)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	challenge, err := fetchChallenge(ctx, url)
	if err != nil {
		return err
	}
	fmt.Printf("challenge: %s %s -> %s (%s)\n",
		challenge.AmountDisplay, challenge.Asset, challenge.SettlementAccount, challenge.Message)

	proof, err := buildProof(ctx, rpc.New(rpcURL), payer, challenge)
	if err != nil {
		return err
	}

	return payAndFetch(ctx, url, proof)
}

// fetchChallenge hits the endpoint without a proof and parses the 402 body.
func fetchChallenge(ctx context.Context, url string) (*types.ChallengePayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch challenge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		return nil, fmt.Errorf("expected 402 challenge, got %s", resp.Status)
	}
	var body types.ChallengeBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return &body.Payment, nil
}

// buildProof assembles, signs, and envelopes the token transfer the
// challenge asks for. The transaction is not broadcast here; the server
// broadcasts it during settlement.
func buildProof(ctx context.Context, client *rpc.Client, payer solana.PrivateKey, ch *types.ChallengePayment) (string, error) {
	mint, err := solana.PublicKeyFromBase58(ch.Asset)
	if err != nil {
		return "", fmt.Errorf("challenge asset: %w", err)
	}
	dest, err := solana.PublicKeyFromBase58(ch.SettlementAccount)
	if err != nil {
		return "", fmt.Errorf("challenge settlement account: %w", err)
	}
	source, _, err := solana.FindAssociatedTokenAddress(payer.PublicKey(), mint)
	if err != nil {
		return "", fmt.Errorf("derive source token account: %w", err)
	}

	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction(source, dest, payer.PublicKey(), ch.AmountBaseUnits)},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	env := types.ProofEnvelope{
		ProtocolVersion: types.ProtocolVersion,
		Scheme:          types.SchemeExact,
		Network:         ch.Network,
		Payload: types.ProofPayload{
			SerializedTransaction: base64.StdEncoding.EncodeToString(txBytes),
		},
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// transferInstruction encodes an SPL Token Transfer (source, dest, owner).
func transferInstruction(source, dest, owner solana.PublicKey, amount uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], amount)
	return solana.NewInstruction(
		solana.TokenProgramID,
		solana.AccountMetaSlice{
			solana.Meta(source).WRITE(),
			solana.Meta(dest).WRITE(),
			solana.Meta(owner).SIGNER(),
		},
		data,
	)
}

func payAndFetch(ctx context.Context, url, proof string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set(middleware.Header, proof)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("paid request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payment rejected (%s): %s", resp.Status, bytes.TrimSpace(body))
	}
	fmt.Printf("access granted: %s\n", bytes.TrimSpace(body))
	return nil
}
