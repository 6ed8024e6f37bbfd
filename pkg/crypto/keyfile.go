package crypto

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// SaveSecretKey writes sk to filename as hex, readable only by the owner
func SaveSecretKey(filename string, sk SecretKey) error {
	return os.WriteFile(filename, []byte(hex.EncodeToString(sk[:])+"\n"), 0600)
}

// LoadSecretKey reads a hex encoded secret key written by SaveSecretKey
func LoadSecretKey(filename string) (SecretKey, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return SecretKey{}, err
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return SecretKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != SecretKeySize {
		return SecretKey{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(raw), SecretKeySize)
	}

	var sk SecretKey
	copy(sk[:], raw)
	return sk, nil
}
