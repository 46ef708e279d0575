// Package verification inspects a decoded transaction's instruction list for
// a value transfer that satisfies the payment requirement.
package verification

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/warden-labs/paygate/types"
)

// transferOpcode is the SPL Token program's Transfer instruction tag.
const transferOpcode = 3

// minTransferDataLen is one opcode byte plus an 8-byte little-endian amount.
const minTransferDataLen = 9

// Match describes the first instruction that satisfied the requirement.
type Match struct {
	// InstructionIndex is the position in the transaction's instruction list.
	InstructionIndex int

	// Amount is the transferred value in base units.
	Amount uint64

	// Source and Destination are the instruction's token accounts.
	Source      solana.PublicKey
	Destination solana.PublicKey

	// Owner is the wallet authorizing the transfer (the instruction's third
	// account), when the instruction carries one.
	Owner solana.PublicKey
}

// FindTransfer scans the instruction list in order and returns the first
// instruction that (a) targets the SPL Token program, (b) carries the
// Transfer opcode, (c) has data long enough for the amount field, (d) pays
// the requirement's settlement account, and (e) transfers at least the
// required amount. The first qualifying instruction wins even if later ones
// also qualify. A miss is a NoValidTransfer rejection, not a decode failure.
func FindTransfer(tx *solana.Transaction, req *types.Requirement) (*Match, error) {
	settlement, err := solana.PublicKeyFromBase58(req.SettlementAccount)
	if err != nil {
		return nil, types.Wrap(types.KindNotReady, "settlement account is not a valid address", err)
	}

	keys := tx.Message.AccountKeys
	insufficient := false

	for i, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) {
			continue
		}
		if !keys[ix.ProgramIDIndex].Equals(solana.TokenProgramID) {
			continue
		}
		if len(ix.Data) < minTransferDataLen || ix.Data[0] != transferOpcode {
			continue
		}
		// Transfer account order is source, destination, owner.
		if len(ix.Accounts) < 2 {
			continue
		}
		srcIdx, dstIdx := int(ix.Accounts[0]), int(ix.Accounts[1])
		if srcIdx >= len(keys) || dstIdx >= len(keys) {
			continue
		}
		if !keys[dstIdx].Equals(settlement) {
			continue
		}

		amount := binary.LittleEndian.Uint64(ix.Data[1:minTransferDataLen])
		if amount < req.Amount {
			insufficient = true
			continue
		}

		match := &Match{
			InstructionIndex: i,
			Amount:           amount,
			Source:           keys[srcIdx],
			Destination:      keys[dstIdx],
		}
		if len(ix.Accounts) > 2 {
			if ownerIdx := int(ix.Accounts[2]); ownerIdx < len(keys) {
				match.Owner = keys[ownerIdx]
			}
		}
		return match, nil
	}

	if insufficient {
		return nil, types.E(types.KindNoValidTransfer,
			fmt.Sprintf("transfer amount below required minimum of %d base units", req.Amount))
	}
	return nil, types.E(types.KindNoValidTransfer, "no qualifying transfer instruction in transaction")
}
