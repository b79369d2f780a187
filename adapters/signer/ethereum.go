package signer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
)

// EthereumVerifier recovers addresses from EIP-191 personal_sign signatures,
// the scheme browser wallets use for plain-text message signing.
type EthereumVerifier struct{}

// NewEthereumVerifier creates a new Ethereum signature verifier
func NewEthereumVerifier() ports.SignatureVerifier {
	return &EthereumVerifier{}
}

// RecoverAddress returns the lowercase address that signed message. Every
// malformed input maps to core.ErrInvalidSignature.
func (v *EthereumVerifier) RecoverAddress(message, signature string) (string, error) {
	if !strings.HasPrefix(signature, "0x") {
		signature = "0x" + signature
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	// Wallets emit the recovery id as 27/28; crypto expects 0/1.
	recoverable := make([]byte, crypto.SignatureLength)
	copy(recoverable, sig)
	if recoverable[crypto.RecoveryIDOffset] >= 27 {
		recoverable[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), recoverable)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}

	return strings.ToLower(crypto.PubkeyToAddress(*pubKey).Hex()), nil
}
