package service

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// aeadCipher adapts a cipher.AEAD with a 12-byte nonce and 16-byte tag to the AEAD
// interface, keeping the tag separate from the ciphertext as the envelope stores it.
//
// Every Seal draws a fresh nonce from crypto/rand. With 96-bit random nonces the
// collision bound stays negligible well past the volume a single user's DEK sees.
type aeadCipher struct {
	aead cipher.AEAD
}

func newAEADCipher(aead cipher.AEAD) (*aeadCipher, error) {
	if aead.NonceSize() != cryptoDomain.NonceSize || aead.Overhead() != cryptoDomain.TagSize {
		return nil, fmt.Errorf(
			"unexpected AEAD parameters: nonce=%d overhead=%d",
			aead.NonceSize(),
			aead.Overhead(),
		)
	}
	return &aeadCipher{aead: aead}, nil
}

// Seal encrypts plaintext with a random nonce and authenticates aad.
func (a *aeadCipher) Seal(plaintext, aad []byte) (*SealedBox, error) {
	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - cryptoDomain.TagSize

	return &SealedBox{
		Nonce:      nonce,
		Ciphertext: sealed[:split:split],
		Tag:        sealed[split:],
	}, nil
}

// Open verifies the tag and decrypts. Any failure, including malformed nonce or
// tag lengths, returns ErrDecryptionFailed.
func (a *aeadCipher) Open(nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	if len(nonce) != cryptoDomain.NonceSize || len(tag) != cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
