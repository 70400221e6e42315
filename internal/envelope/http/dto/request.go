// Package dto provides data transfer objects for envelope HTTP requests and responses.
package dto

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	customValidation "github.com/nemory/userkeys/internal/validation"
)

// EncryptRequest contains the parameters for encrypting a field for a user.
type EncryptRequest struct {
	Purpose   string `json:"purpose"`   // Scope label bound into the envelope, e.g. "entry.content"
	Plaintext string `json:"plaintext"` // Base64-encoded plaintext, may be empty
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Purpose,
			validation.Required,
			customValidation.NotBlank,
			customValidation.PurposeLabel,
		),
		validation.Field(&r.Plaintext,
			customValidation.Base64,
		),
	)
}

// DecodePlaintext returns the decoded plaintext bytes.
func (r *EncryptRequest) DecodePlaintext() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Plaintext)
}

// DecryptRequest carries a stored envelope back for decryption.
type DecryptRequest struct {
	Envelope *cryptoDomain.Envelope `json:"envelope"`
}

// Validate checks if the decrypt request is valid.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelope, validation.NotNil),
	)
}
