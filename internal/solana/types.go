package solana

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Well-known program addresses.
const (
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// TokenAccountSize is the byte length of an SPL token account.
// Layout: mint(32) | owner(32) | amount(8) | ...
const TokenAccountSize = 165

// DefaultCommitment is used when no commitment is configured.
const DefaultCommitment = "confirmed"

// TokenAmount is an SPL token amount as returned by the node.
type TokenAmount struct {
	Amount         string // raw integer amount
	Decimals       uint8
	UIAmountString string
}

// UIAmount returns the human-scale amount.
// Prefers the node-formatted string, falls back to Amount shifted by Decimals.
func (a TokenAmount) UIAmount() (decimal.Decimal, error) {
	if a.UIAmountString != "" {
		d, err := decimal.NewFromString(a.UIAmountString)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse ui amount %q: %w", a.UIAmountString, err)
		}
		return d, nil
	}
	if a.Amount != "" {
		d, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", a.Amount, err)
		}
		return d.Shift(-int32(a.Decimals)), nil
	}
	return decimal.Zero, fmt.Errorf("empty token amount")
}

// TokenAccount is an SPL token account.
// Amount is only populated by jsonParsed queries.
type TokenAccount struct {
	Pubkey string
	Owner  string
	Mint   string
	Amount *TokenAmount
}

// Blockhash is a recent blockhash with its validity horizon.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus string
}

// Landed reports whether the status reached at least the given commitment.
func (s *SignatureStatus) Landed(commitment string) bool {
	if s == nil {
		return false
	}
	switch commitment {
	case "finalized":
		return s.ConfirmationStatus == "finalized"
	case "processed":
		return s.ConfirmationStatus != ""
	default:
		return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
	}
}
