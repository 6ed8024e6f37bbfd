package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the BLAKE2b-256 digest size
const HashSize = blake2b.Size256

// conferenceTopicDomain separates conference topics from other uses of Hash
var conferenceTopicDomain = []byte("zentalk/conference-topic/v1")

// Hash generates a BLAKE2b-256 hash
func Hash(data []byte) [HashSize]byte {
	return blake2b.Sum256(data)
}

// HashString generates a BLAKE2b-256 hash and returns hex string
func HashString(data []byte) string {
	sum := Hash(data)
	return hex.EncodeToString(sum[:])
}

// ConferenceTopic returns the public rendezvous name for a conference. Only
// members who know the conference ID can derive it, and the ID itself cannot
// be recovered from it.
func ConferenceTopic(conferenceID PublicKey) string {
	buf := make([]byte, 0, len(conferenceTopicDomain)+PublicKeySize)
	buf = append(buf, conferenceTopicDomain...)
	buf = append(buf, conferenceID[:]...)
	return HashString(buf)
}
