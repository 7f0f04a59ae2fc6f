package walletauth

import (
	"crypto/rand"
	"encoding/hex"
)

const nonceBytes = 32

// NonceGenerator produces fresh unpredictable challenge values.
type NonceGenerator interface {
	Generate() (string, error)
}

// HexNonceGenerator returns 32 random bytes hex-encoded.
type HexNonceGenerator struct{}

// NewHexNonceGenerator constructs the generator.
func NewHexNonceGenerator() *HexNonceGenerator {
	return &HexNonceGenerator{}
}

// Generate returns a fresh random nonce.
func (HexNonceGenerator) Generate() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
