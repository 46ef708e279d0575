// Package codec decodes the proof envelope carried in the payment header and
// the Solana wire transaction inside it, and re-serializes verified
// transactions for broadcast.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/warden-labs/paygate/types"
)

// DecodeHeader parses the base64-encoded JSON proof envelope. It is total:
// every failure comes back as a typed Error, never a panic.
func DecodeHeader(header string) (*types.ProofEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, types.Wrap(types.KindBadEncoding, "proof header is not valid base64", err)
	}

	var env types.ProofEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, types.Wrap(types.KindBadEnvelope, "proof header is not a valid envelope", err)
	}

	if err := env.Validate(); err != nil {
		return nil, err
	}

	if env.ProtocolVersion != types.ProtocolVersion {
		return nil, types.E(types.KindBadEnvelope,
			fmt.Sprintf("unsupported protocol version %d, expected %d", env.ProtocolVersion, types.ProtocolVersion))
	}

	return &env, nil
}

// DecodeTransaction parses the envelope's serialized transaction into its
// structured form: signatures, account table, instruction table, recent
// blockhash.
func DecodeTransaction(env *types.ProofEnvelope) (*solana.Transaction, error) {
	txBytes, err := base64.StdEncoding.DecodeString(env.Payload.SerializedTransaction)
	if err != nil {
		return nil, types.Wrap(types.KindBadEncoding, "serialized transaction is not valid base64", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return nil, types.Wrap(types.KindBadTransactionBinary, "transaction bytes do not parse", err)
	}

	if len(tx.Message.Instructions) == 0 {
		return nil, types.E(types.KindBadTransactionBinary, "transaction carries no instructions")
	}

	return tx, nil
}

// EncodeTransaction re-serializes a decoded transaction to wire bytes prior
// to broadcast. Encoding round-trips: decoding the output yields a
// transaction structurally equal to the input.
func EncodeTransaction(tx *solana.Transaction) ([]byte, error) {
	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, types.Wrap(types.KindBadTransactionBinary, "transaction does not re-serialize", err)
	}
	return out, nil
}
