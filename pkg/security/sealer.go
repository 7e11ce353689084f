package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrInvalidCiphertext signals a sealed value that cannot be opened with the key.
var ErrInvalidCiphertext = fmt.Errorf("invalid sealed value")

// Sealer encrypts short secrets (carrier tokens) for storage using
// NaCl secretbox. Sealed values are base64(nonce || box).
type Sealer struct {
	key  [keySize]byte
	rand io.Reader
}

// NewSealer builds a sealer from a 32 byte key encoded as hex or base64.
func NewSealer(encodedKey string) (*Sealer, error) {
	raw, err := decodeKey(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, err
	}
	s := &Sealer{rand: rand.Reader}
	copy(s.key[:], raw)
	return s, nil
}

// ValidateKey reports whether encodedKey decodes to a usable key.
func ValidateKey(encodedKey string) error {
	_, err := decodeKey(strings.TrimSpace(encodedKey))
	return err
}

func decodeKey(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("encryption key is required")
	}
	if raw, err := hex.DecodeString(value); err == nil && len(raw) == keySize {
		return raw, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding} {
		if raw, err := enc.DecodeString(value); err == nil && len(raw) == keySize {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("encryption key must decode to %d bytes", keySize)
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sealed))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
