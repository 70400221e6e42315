package service

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// NewAESGCM creates an AES-256-GCM cipher.
//
// The key must be exactly 32 bytes. The cipher is stateless and safe for
// concurrent use; each Seal generates its own nonce.
func NewAESGCM(key []byte) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return newAEADCipher(aead)
}
