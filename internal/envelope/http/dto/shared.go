package dto

import (
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// MaxSharedTextLength caps the text accepted by the app-scoped encrypt endpoint.
const MaxSharedTextLength = 1 << 20

// SharedEncryptRequest carries application-owned text to seal.
type SharedEncryptRequest struct {
	Text string `json:"text"`
}

// Validate checks if the shared encrypt request is valid.
func (r *SharedEncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Text, validation.Length(0, MaxSharedTextLength)),
	)
}

// SharedDecryptRequest carries an envelope produced by the shared encrypt endpoint.
type SharedDecryptRequest struct {
	Blob *cryptoDomain.Envelope `json:"blob"`
}

// Validate checks if the shared decrypt request is valid.
func (r *SharedDecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Blob, validation.NotNil),
	)
}

// SharedDecryptResponse holds the decrypted text.
// SECURITY: The Text field contains sensitive data and should be transmitted over HTTPS.
type SharedDecryptResponse struct {
	Text string `json:"text"`
}
