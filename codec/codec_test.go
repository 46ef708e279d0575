package codec

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/warden-labs/paygate/internal/paytest"
	"github.com/warden-labs/paygate/types"
)

func TestDecodeHeaderErrors(t *testing.T) {
	partial := paytest.EnvelopeHeader(t, types.ProofEnvelope{
		ProtocolVersion: 1,
		Scheme:          "exact",
		// network and payload missing
	})
	futureVersion := paytest.EnvelopeHeader(t, types.ProofEnvelope{
		ProtocolVersion: 99,
		Scheme:          types.SchemeExact,
		Network:         paytest.Network.String(),
		Payload:         types.ProofPayload{SerializedTransaction: "AAAA"},
	})

	tests := []struct {
		name   string
		header string
		kind   types.Kind
	}{
		{"not base64", "!!!not-base64!!!", types.KindBadEncoding},
		{"base64 of non-json", base64.StdEncoding.EncodeToString([]byte("plainly not json")), types.KindBadEnvelope},
		{"incomplete envelope", partial, types.KindBadEnvelope},
		{"unsupported protocol version", futureVersion, types.KindBadEnvelope},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeHeader(tc.header)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := types.KindOf(err); got != tc.kind {
				t.Fatalf("kind = %s, want %s", got, tc.kind)
			}
		})
	}
}

func TestDecodeHeaderAcceptsValidEnvelope(t *testing.T) {
	tx := paytest.PaymentTx(t, solana.NewWallet().PublicKey(), 100)
	env, err := DecodeHeader(paytest.ProofHeader(t, tx))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if env.Scheme != types.SchemeExact {
		t.Errorf("scheme = %q, want %q", env.Scheme, types.SchemeExact)
	}
	if env.Payload.SerializedTransaction == "" {
		t.Error("payload transaction is empty")
	}
}

func TestDecodeTransactionErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    types.Kind
	}{
		{"garbage base64", "@@@@", types.KindBadEncoding},
		{"valid base64, corrupt binary", base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03}), types.KindBadTransactionBinary},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := &types.ProofEnvelope{
				ProtocolVersion: 1,
				Scheme:          types.SchemeExact,
				Network:         paytest.Network.String(),
				Payload:         types.ProofPayload{SerializedTransaction: tc.payload},
			}
			_, err := DecodeTransaction(env)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := types.KindOf(err); got != tc.kind {
				t.Fatalf("kind = %s, want %s", got, tc.kind)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tx := paytest.PaymentTx(t, solana.NewWallet().PublicKey(), 150)

	env, err := DecodeHeader(paytest.ProofHeader(t, tx))
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	decoded, err := DecodeTransaction(env)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	encoded, err := EncodeTransaction(decoded)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}

	// decode(encode(decode(x))) must equal decode(x) structurally; comparing
	// wire bytes is the strictest form of that equality.
	again, err := DecodeTransaction(&types.ProofEnvelope{
		ProtocolVersion: 1,
		Scheme:          types.SchemeExact,
		Network:         paytest.Network.String(),
		Payload:         types.ProofPayload{SerializedTransaction: base64.StdEncoding.EncodeToString(encoded)},
	})
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}

	reencoded, err := EncodeTransaction(again)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(encoded, reencoded) {
		t.Fatal("transaction does not round-trip")
	}
	if len(again.Message.Instructions) != len(decoded.Message.Instructions) {
		t.Fatal("instruction count changed across round-trip")
	}
}
