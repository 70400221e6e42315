package service

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher.
//
// Uses the 12-byte nonce variant so envelopes have the same layout as AES-256-GCM.
func NewChaCha20Poly1305(key []byte) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return newAEADCipher(aead)
}
