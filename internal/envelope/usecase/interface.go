// Package usecase implements field-level envelope encryption for user content.
//
// Encryption seals plaintext under the user's current DEK and records everything
// needed to open it again in a self-describing envelope. Decryption never consults
// the user's current key: it unwraps the DEK copy embedded in the envelope, so
// rotating a user's key does not affect existing envelopes.
package usecase

import (
	"context"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// DEKProvider hands out a user's current plaintext DEK together with its record.
// The caller owns the returned slice and must zero it.
type DEKProvider interface {
	GetPlaintextDEK(ctx context.Context, userID int64) ([]byte, *userkeyDomain.UserKey, error)
}

// EnvelopeUseCase defines the two operations the rest of the application uses to
// protect user content.
type EnvelopeUseCase interface {
	// EncryptForUser seals plaintext for userID under the given purpose label
	// (for example "entry.content").
	EncryptForUser(
		ctx context.Context,
		userID int64,
		purpose string,
		plaintext []byte,
	) (*cryptoDomain.Envelope, error)
	// DecryptForUser opens an envelope on behalf of userID.
	//
	// Any authentication failure is reported as ErrDecryptionFailed without
	// revealing which check failed.
	DecryptForUser(ctx context.Context, userID int64, envelope *cryptoDomain.Envelope) ([]byte, error)
	// DecryptString is DecryptForUser for envelopes holding UTF-8 text.
	DecryptString(ctx context.Context, userID int64, envelope *cryptoDomain.Envelope) (string, error)
	// EncryptShared seals application-owned data under a single-use data key
	// wrapped with the {app} context. The envelope carries no ctx and no aad.
	EncryptShared(ctx context.Context, plaintext []byte) (*cryptoDomain.Envelope, error)
	// DecryptShared opens an envelope produced by EncryptShared. Envelopes bound to
	// a user are refused with ErrDecryptionFailed.
	DecryptShared(ctx context.Context, envelope *cryptoDomain.Envelope) ([]byte, error)
}
