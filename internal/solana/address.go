package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeySize is the byte length of a Solana public key.
const PublicKeySize = 32

// ErrInvalidAddress is returned for strings that are not 32-byte base58 keys.
var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress checks that s is a base58-encoded 32-byte public key.
func ValidateAddress(s string) error {
	_, err := decodeAddress(s)
	return err
}

func decodeAddress(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(b))
	}
	return b, nil
}

// TokenAccountOwner decodes the owner key from raw SPL token account data.
func TokenAccountOwner(data []byte) (string, error) {
	if len(data) < 2*PublicKeySize {
		return "", fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	return base58.Encode(data[PublicKeySize : 2*PublicKeySize]), nil
}

// FindAssociatedTokenAddress derives the associated token account of wallet for mint.
func FindAssociatedTokenAddress(wallet, mint string) (string, error) {
	walletKey, err := decodeAddress(wallet)
	if err != nil {
		return "", fmt.Errorf("wallet: %w", err)
	}
	mintKey, err := decodeAddress(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, err := base58.Decode(TokenProgramID)
	if err != nil {
		return "", err
	}
	ataProgram, err := base58.Decode(AssociatedTokenProgramID)
	if err != nil {
		return "", err
	}

	pda, ok := findProgramAddress([][]byte{walletKey, tokenProgram, mintKey}, ataProgram)
	if !ok {
		return "", fmt.Errorf("no off-curve address for wallet %s mint %s", wallet, mint)
	}
	return pda, nil
}

// findProgramAddress searches bump seeds from 255 downward and returns the
// first hash that is not a valid ed25519 point.
func findProgramAddress(seeds [][]byte, programID []byte) (string, bool) {
	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), true
		}
	}
	return "", false
}

func isOnCurve(point []byte) bool {
	if len(point) != PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
