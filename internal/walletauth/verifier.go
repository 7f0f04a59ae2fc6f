package walletauth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureVerifier checks that a signed message proves control of the wallet
// address for the expected challenge nonce.
type SignatureVerifier interface {
	Verify(address, signedMessage, nonce string) (bool, error)
}

// EthereumVerifier validates EIP-191 personal-sign signatures: the wallet
// signs the raw nonce string, and the signer address recovered from the
// signature must match the claimed address.
type EthereumVerifier struct{}

// NewEthereumVerifier constructs the verifier.
func NewEthereumVerifier() *EthereumVerifier {
	return &EthereumVerifier{}
}

// Verify recovers the signer from signedMessage over the nonce challenge and
// compares it to address. Malformed signatures report invalid, not an error.
func (v *EthereumVerifier) Verify(address, signedMessage, nonce string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, nil
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signedMessage, "0x"))
	if err != nil || len(sig) != ethcrypto.SignatureLength {
		return false, nil
	}
	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	if sig[ethcrypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[ethcrypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(personalSignHash(nonce), sig)
	if err != nil {
		return false, nil
	}

	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	return recovered == common.HexToAddress(address), nil
}

// personalSignHash computes the EIP-191 digest wallets sign for plain text.
func personalSignHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}
