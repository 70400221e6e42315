package domain

import (
	"encoding/json"

	"github.com/nemory/userkeys/internal/errors"
)

// Envelope is a self-describing encrypted field.
//
// It carries everything needed to decrypt it again except the KMS master key:
// the AEAD parameters, a verbatim copy of the wrapped DEK that was active at
// encryption time, the encryption context and the exact AAD bytes that were
// authenticated. Envelopes are immutable; re-encrypting produces a new one.
//
// The JSON field names are the persisted wire format and must not change:
//
//	{"v":1,"alg":"AES-256-GCM","iv":"..","tag":"..","ct":"..","edk":"..","ctx":{..},"aad":".."}
//
// Binary fields are standard base64 with padding.
type Envelope struct {
	FormatVersion  int               `json:"v"`
	Algorithm      Algorithm         `json:"alg"`
	Nonce          []byte            `json:"iv"`
	AuthTag        []byte            `json:"tag"`
	Ciphertext     []byte            `json:"ct"`
	WrappedDEK     []byte            `json:"edk"`
	Context        EncryptionContext `json:"ctx,omitempty"`
	AssociatedData []byte            `json:"aad,omitempty"`
}

// ParseEnvelope decodes and validates a JSON envelope document.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(ErrUnsupportedFormat, err.Error())
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Marshal encodes the envelope in its wire format.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Validate checks the envelope layout before any key material is requested.
//
// Unknown format versions and algorithms fail with ErrUnsupportedFormat. A
// structurally broken envelope (wrong nonce or tag length, missing wrapped key)
// fails with ErrDecryptionFailed, the same error a failed tag check produces.
func (e *Envelope) Validate() error {
	if e.FormatVersion != EnvelopeFormatV1 {
		return errors.Wrapf(ErrUnsupportedFormat, "format version %d", e.FormatVersion)
	}
	if !e.Algorithm.IsSupported() {
		return errors.Wrapf(ErrUnsupportedFormat, "algorithm %q", e.Algorithm)
	}
	if len(e.Nonce) != NonceSize || len(e.AuthTag) != TagSize || len(e.WrappedDEK) == 0 {
		return ErrDecryptionFailed
	}
	return nil
}

// KeyVersion returns the DEK version the envelope was sealed under.
// Envelopes without a context predate key versioning and use "1".
func (e *Envelope) KeyVersion() string {
	if v, ok := e.Context.Get(ContextKeyVersion); ok && v != "" {
		return v
	}
	return "1"
}

// Owner returns the user id recorded in the envelope context, if any.
func (e *Envelope) Owner() (string, bool) {
	return e.Context.Get(ContextKeyUserID)
}
