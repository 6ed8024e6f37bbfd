package crypto

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string // BLAKE2b-256 hash in hex
	}{
		{
			name:     "empty input",
			input:    []byte{},
			expected: "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		},
		{
			name:     "simple string",
			input:    []byte("hello world"),
			expected: "256c83b297114d201b30179f3f0ef0cace9783622da5974326b436178aeef610",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Hash(tt.input)
			if got := hex.EncodeToString(sum[:]); got != tt.expected {
				t.Errorf("Hash() = %s, want %s", got, tt.expected)
			}
			if got := HashString(tt.input); got != tt.expected {
				t.Errorf("HashString() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestConferenceTopic(t *testing.T) {
	a, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	topic := ConferenceTopic(a)
	if len(topic) != HashSize*2 {
		t.Errorf("ConferenceTopic() length = %d, want %d", len(topic), HashSize*2)
	}
	if topic != ConferenceTopic(a) {
		t.Error("ConferenceTopic() is not deterministic")
	}
	if topic == ConferenceTopic(b) {
		t.Error("different conferences share a topic")
	}
	if strings.Contains(strings.ToUpper(topic), a.String()) {
		t.Error("topic leaks the conference ID")
	}
	if topic == HashString(a[:]) {
		t.Error("topic is the bare hash of the conference ID")
	}
}
