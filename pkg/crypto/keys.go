package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/ZentaChain/zentalk-wire/pkg/wire"
)

// Key sizes
const (
	PublicKeySize = 32
	SecretKeySize = 32
)

var (
	ErrInvalidKey = errors.New("invalid key")
)

// PublicKey is a NaCl crypto_box public key. It is used both as a long-term
// identity key and as a DHT key.
type PublicKey [PublicKeySize]byte

// SecretKey is the matching crypto_box secret key
type SecretKey [SecretKeySize]byte

// GenerateKeyPair generates a new crypto_box key pair
func GenerateKeyPair() (PublicKey, SecretKey, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return PublicKey{}, SecretKey{}, fmt.Errorf("generate key pair: %w", err)
	}
	return PublicKey(*pub), SecretKey(*sec), nil
}

// PublicKeyFromSecret derives the public key for sk
func PublicKeyFromSecret(sk SecretKey) (PublicKey, error) {
	pub, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	var pk PublicKey
	copy(pk[:], pub)
	return pk, nil
}

// DecodePublicKey reads a key from the first PublicKeySize bytes of buf
func DecodePublicKey(buf []byte) (PublicKey, int, error) {
	var pk PublicKey
	n, err := pk.DecodeFrom(buf)
	if err != nil {
		return PublicKey{}, 0, err
	}
	return pk, n, nil
}

// ParsePublicKey parses a hex encoded key
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(raw), PublicKeySize)
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

// DecodeFrom implements wire.Decoder
func (pk *PublicKey) DecodeFrom(buf []byte) (int, error) {
	raw, err := wire.NewReader(buf).Bytes(PublicKeySize)
	if err != nil {
		return 0, err
	}
	copy(pk[:], raw)
	return PublicKeySize, nil
}

// EncodedLen implements wire.Encoder
func (pk PublicKey) EncodedLen() int {
	return PublicKeySize
}

// EncodeTo implements wire.Encoder
func (pk PublicKey) EncodeTo(buf []byte) (int, error) {
	w := wire.NewWriter(buf)
	if err := w.PutBytes(pk[:]); err != nil {
		return 0, err
	}
	return w.Offset(), nil
}

// Equal compares two keys in constant time
func (pk PublicKey) Equal(other PublicKey) bool {
	return subtle.ConstantTimeCompare(pk[:], other[:]) == 1
}

// IsZero reports whether the key is all zeros
func (pk PublicKey) IsZero() bool {
	return pk.Equal(PublicKey{})
}

// String returns the key as upper-case hex, the way Tox clients print keys
func (pk PublicKey) String() string {
	return fmt.Sprintf("%X", pk[:])
}

// Short returns the first 8 bytes in hex, for logs
func (pk PublicKey) Short() string {
	return fmt.Sprintf("%x", pk[:8])
}

// MarshalText implements encoding.TextMarshaler
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
