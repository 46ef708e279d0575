package verification

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/warden-labs/paygate/internal/paytest"
	"github.com/warden-labs/paygate/types"
)

func TestFindTransferNoTokenInstruction(t *testing.T) {
	payer := solana.NewWallet()
	dest := solana.NewWallet().PublicKey()

	// A lamport transfer via the system program must not qualify.
	inst := system.NewTransferInstruction(500, payer.PublicKey(), dest).Build()
	tx := paytest.SignedTx(t, payer, inst)

	_, err := FindTransfer(tx, paytest.Requirement(dest, 100))
	if got := types.KindOf(err); got != types.KindNoValidTransfer {
		t.Fatalf("kind = %s, want %s", got, types.KindNoValidTransfer)
	}
}

func TestFindTransferAmountBoundary(t *testing.T) {
	dest := solana.NewWallet().PublicKey()
	req := paytest.Requirement(dest, 100)

	t.Run("amount equal to minimum is accepted", func(t *testing.T) {
		tx := paytest.PaymentTx(t, dest, 100)
		match, err := FindTransfer(tx, req)
		if err != nil {
			t.Fatalf("FindTransfer: %v", err)
		}
		if match.Amount != 100 {
			t.Errorf("amount = %d, want 100", match.Amount)
		}
	})

	t.Run("amount one below minimum is rejected", func(t *testing.T) {
		tx := paytest.PaymentTx(t, dest, 99)
		_, err := FindTransfer(tx, req)
		if got := types.KindOf(err); got != types.KindNoValidTransfer {
			t.Fatalf("kind = %s, want %s", got, types.KindNoValidTransfer)
		}
		if !strings.Contains(err.Error(), "below required minimum") {
			t.Errorf("insufficient amount not distinguished in %q", err)
		}
	})
}

func TestFindTransferFirstQualifyingWins(t *testing.T) {
	payer := solana.NewWallet()
	source := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()

	tx := paytest.SignedTx(t, payer,
		paytest.TransferInstruction(source, dest, payer.PublicKey(), 120),
		paytest.TransferInstruction(source, dest, payer.PublicKey(), 500),
	)

	match, err := FindTransfer(tx, paytest.Requirement(dest, 100))
	if err != nil {
		t.Fatalf("FindTransfer: %v", err)
	}
	if match.InstructionIndex != 0 {
		t.Errorf("instruction index = %d, want 0", match.InstructionIndex)
	}
	if match.Amount != 120 {
		t.Errorf("amount = %d, want 120 (the first qualifying instruction)", match.Amount)
	}
	if !match.Owner.Equals(payer.PublicKey()) {
		t.Errorf("owner = %s, want %s", match.Owner, payer.PublicKey())
	}
}

func TestFindTransferSkipsNonQualifying(t *testing.T) {
	payer := solana.NewWallet()
	source := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	shortData := solana.NewInstruction(solana.TokenProgramID,
		solana.AccountMetaSlice{solana.Meta(source).WRITE(), solana.Meta(dest).WRITE()},
		[]byte{3, 0xff})
	wrongOpcode := solana.NewInstruction(solana.TokenProgramID,
		solana.AccountMetaSlice{solana.Meta(source).WRITE(), solana.Meta(dest).WRITE()},
		append([]byte{7}, paytest.TransferData(900)[1:]...))
	wrongDest := paytest.TransferInstruction(source, other, payer.PublicKey(), 900)
	qualifying := paytest.TransferInstruction(source, dest, payer.PublicKey(), 250)

	tx := paytest.SignedTx(t, payer, shortData, wrongOpcode, wrongDest, qualifying)

	match, err := FindTransfer(tx, paytest.Requirement(dest, 100))
	if err != nil {
		t.Fatalf("FindTransfer: %v", err)
	}
	if match.InstructionIndex != 3 {
		t.Errorf("instruction index = %d, want 3", match.InstructionIndex)
	}
	if !match.Destination.Equals(dest) {
		t.Errorf("destination = %s, want %s", match.Destination, dest)
	}
}

func TestFindTransferBadSettlementAccount(t *testing.T) {
	dest := solana.NewWallet().PublicKey()
	tx := paytest.PaymentTx(t, dest, 100)

	req := paytest.Requirement(dest, 100)
	req.SettlementAccount = "not-a-base58-key"

	_, err := FindTransfer(tx, req)
	if got := types.KindOf(err); got != types.KindNotReady {
		t.Fatalf("kind = %s, want %s", got, types.KindNotReady)
	}
}
