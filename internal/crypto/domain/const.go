package domain

// Algorithm identifies the AEAD cipher recorded in an envelope's "alg" field.
//
// Both supported algorithms use a 256-bit key, a 96-bit nonce and a 128-bit
// authentication tag, so the envelope layout is identical for either one.
type Algorithm string

const (
	// AESGCM is AES-256 in Galois/Counter Mode. It is the default for new envelopes
	// and the only identifier ever written by earlier releases.
	AESGCM Algorithm = "AES-256-GCM"

	// ChaCha20 is ChaCha20-Poly1305, for hosts without AES hardware acceleration.
	ChaCha20 Algorithm = "CHACHA20-POLY1305"
)

// IsSupported reports whether alg can be used to open an envelope.
func (a Algorithm) IsSupported() bool {
	switch a {
	case AESGCM, ChaCha20:
		return true
	default:
		return false
	}
}

const (
	// KeySize is the size of every data encryption key in bytes.
	KeySize = 32

	// NonceSize is the AEAD nonce size in bytes.
	NonceSize = 12

	// TagSize is the AEAD authentication tag size in bytes.
	TagSize = 16

	// EnvelopeFormatV1 is the only envelope layout ("v") currently defined.
	EnvelopeFormatV1 = 1
)

// Keys and fixed values used in encryption contexts.
const (
	ContextKeyApp     = "app"
	ContextKeyUserID  = "uid"
	ContextKeyScope   = "scope"
	ContextKeyVersion = "kver"
	ContextKeyFormat  = "ver"

	// ScopeUserDEK is the scope a user's wrapped DEK is bound to at the KMS.
	ScopeUserDEK = "user_dek"

	// ContextFormatV1 is the "ver" written into every envelope context. It selects
	// the canonical serialization rule used to rebuild the AAD.
	ContextFormatV1 = "1"
)
