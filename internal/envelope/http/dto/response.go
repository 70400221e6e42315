package dto

import (
	"encoding/base64"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// EncryptResponse contains the envelope to persist in place of the plaintext.
type EncryptResponse struct {
	Envelope *cryptoDomain.Envelope `json:"envelope"`
}

// DecryptResponse contains the result of a decryption operation.
// SECURITY: The Plaintext field contains sensitive data and should be transmitted over HTTPS.
type DecryptResponse struct {
	Plaintext  string `json:"plaintext"` // Base64-encoded
	KeyVersion string `json:"key_version"`
}

// MapDecryptResponse builds a DecryptResponse from decrypted bytes.
func MapDecryptResponse(plaintext []byte, envelope *cryptoDomain.Envelope) DecryptResponse {
	return DecryptResponse{
		Plaintext:  base64.StdEncoding.EncodeToString(plaintext),
		KeyVersion: envelope.KeyVersion(),
	}
}
