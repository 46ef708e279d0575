// Package paytest builds the signed transactions and proof headers the
// payment pipeline's tests feed through it.
package paytest

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/warden-labs/paygate/types"
)

// Network is the cluster label used across test fixtures.
const Network = types.NetworkSolanaDevnet

// TransferData encodes an SPL Token Transfer instruction payload.
func TransferData(amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], amount)
	return data
}

// TransferInstruction builds a token-program transfer of amount from source
// to dest, owned by owner.
func TransferInstruction(source, dest, owner solana.PublicKey, amount uint64) solana.Instruction {
	return solana.NewInstruction(
		solana.TokenProgramID,
		solana.AccountMetaSlice{
			solana.Meta(source).WRITE(),
			solana.Meta(dest).WRITE(),
			solana.Meta(owner).SIGNER(),
		},
		TransferData(amount),
	)
}

// SignedTx assembles and signs a transaction paying fees from payer.
func SignedTx(t testing.TB, payer *solana.Wallet, instrs ...solana.Instruction) *solana.Transaction {
	t.Helper()

	recent := solana.Hash(solana.NewWallet().PublicKey())
	tx, err := solana.NewTransaction(instrs, recent, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	if err != nil {
		t.Fatalf("sign transaction: %v", err)
	}
	return tx
}

// PaymentTx builds a signed transaction carrying a single qualifying
// transfer of amount to dest.
func PaymentTx(t testing.TB, dest solana.PublicKey, amount uint64) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	source := solana.NewWallet().PublicKey()
	return SignedTx(t, payer, TransferInstruction(source, dest, payer.PublicKey(), amount))
}

// ProofHeader wraps a transaction in the wire envelope and base64-encodes it
// the way a client populates the payment header.
func ProofHeader(t testing.TB, tx *solana.Transaction) string {
	t.Helper()

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal transaction: %v", err)
	}
	return EnvelopeHeader(t, types.ProofEnvelope{
		ProtocolVersion: types.ProtocolVersion,
		Scheme:          types.SchemeExact,
		Network:         Network.String(),
		Payload: types.ProofPayload{
			SerializedTransaction: base64.StdEncoding.EncodeToString(txBytes),
		},
	})
}

// B64 is shorthand for standard base64 encoding.
func B64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// EnvelopeHeader base64-encodes an arbitrary envelope.
func EnvelopeHeader(t testing.TB, env types.ProofEnvelope) string {
	t.Helper()

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// Requirement builds a requirement paying dest at the given price.
func Requirement(dest solana.PublicKey, amount uint64) *types.Requirement {
	return &types.Requirement{
		Asset:             solana.NewWallet().PublicKey().String(),
		Recipient:         solana.NewWallet().PublicKey().String(),
		SettlementAccount: dest.String(),
		Amount:            amount,
		Decimals:          6,
		Network:           Network,
		Message:           "Send USDC to this token account to unlock access",
	}
}

// FakeRPC implements the settlement RPC surface with injectable behavior.
type FakeRPC struct {
	mu sync.Mutex

	SendFunc     func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	StatusesFunc func(ctx context.Context, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)

	SendCalls   int
	StatusCalls int
}

func (f *FakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	f.SendCalls++
	f.mu.Unlock()
	if f.SendFunc != nil {
		return f.SendFunc(ctx, tx)
	}
	if len(tx.Signatures) > 0 {
		return tx.Signatures[0], nil
	}
	return solana.Signature{}, nil
}

func (f *FakeRPC) GetSignatureStatuses(ctx context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	f.StatusCalls++
	f.mu.Unlock()
	if f.StatusesFunc != nil {
		return f.StatusesFunc(ctx, sigs...)
	}
	return ConfirmedStatus(), nil
}

// Sends returns the number of broadcast calls observed.
func (f *FakeRPC) Sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SendCalls
}

// ConfirmedStatus is a status result at the confirmed level.
func ConfirmedStatus() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
}

// PendingStatus is a status result where the signature is not yet observed.
func PendingStatus() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{nil},
	}
}
