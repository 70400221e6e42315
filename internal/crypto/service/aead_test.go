package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAEAD_SealOpen(t *testing.T) {
	constructors := map[string]func([]byte) (AEAD, error){
		"aes-256-gcm":       NewAESGCM,
		"chacha20-poly1305": NewChaCha20Poly1305,
	}

	for name, newCipher := range constructors {
		t.Run(name, func(t *testing.T) {
			cipher, err := newCipher(newTestKey(t))
			require.NoError(t, err)

			plaintext := []byte("hello world")
			aad := []byte(`{"app":"nemory","uid":"42"}`)

			box, err := cipher.Seal(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, box.Nonce, cryptoDomain.NonceSize)
			assert.Len(t, box.Tag, cryptoDomain.TagSize)
			assert.Len(t, box.Ciphertext, len(plaintext))

			t.Run("open", func(t *testing.T) {
				out, err := cipher.Open(box.Nonce, box.Ciphertext, box.Tag, aad)
				require.NoError(t, err)
				assert.Equal(t, plaintext, out)
			})

			t.Run("wrong aad", func(t *testing.T) {
				_, err := cipher.Open(box.Nonce, box.Ciphertext, box.Tag, []byte(`{}`))
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
			})

			t.Run("missing aad", func(t *testing.T) {
				_, err := cipher.Open(box.Nonce, box.Ciphertext, box.Tag, nil)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
			})

			t.Run("flipped ciphertext bit", func(t *testing.T) {
				ct := append([]byte(nil), box.Ciphertext...)
				ct[0] ^= 0x01
				_, err := cipher.Open(box.Nonce, ct, box.Tag, aad)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
			})

			t.Run("flipped tag bit", func(t *testing.T) {
				tag := append([]byte(nil), box.Tag...)
				tag[len(tag)-1] ^= 0x80
				_, err := cipher.Open(box.Nonce, box.Ciphertext, tag, aad)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
			})

			t.Run("malformed nonce", func(t *testing.T) {
				_, err := cipher.Open(box.Nonce[:4], box.Ciphertext, box.Tag, aad)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
			})

			t.Run("wrong key", func(t *testing.T) {
				other, err := newCipher(newTestKey(t))
				require.NoError(t, err)
				_, err = other.Open(box.Nonce, box.Ciphertext, box.Tag, aad)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
			})
		})
	}
}

func TestAEAD_EmptyPlaintext(t *testing.T) {
	cipher, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	box, err := cipher.Seal(nil, []byte("aad"))
	require.NoError(t, err)
	assert.Empty(t, box.Ciphertext)
	assert.Len(t, box.Tag, cryptoDomain.TagSize)

	out, err := cipher.Open(box.Nonce, box.Ciphertext, box.Tag, []byte("aad"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAEAD_FreshNonces(t *testing.T) {
	cipher, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		box, err := cipher.Seal([]byte("same plaintext"), nil)
		require.NoError(t, err)

		_, dup := seen[string(box.Nonce)]
		require.False(t, dup, "nonce repeated after %d seals", i)
		seen[string(box.Nonce)] = struct{}{}
	}
}

func TestAEAD_InvalidKeySize(t *testing.T) {
	_, err := NewAESGCM(make([]byte, 16))
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)

	_, err = NewChaCha20Poly1305(make([]byte, 64))
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
}
