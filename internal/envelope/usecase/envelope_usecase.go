package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"unicode/utf8"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	cryptoService "github.com/nemory/userkeys/internal/crypto/service"
	apperrors "github.com/nemory/userkeys/internal/errors"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// ErrInvalidUTF8 indicates decrypted content is not valid UTF-8 text.
var ErrInvalidUTF8 = apperrors.Wrap(apperrors.ErrInvalidInput, "decrypted content is not valid UTF-8")

// Config holds the identifiers bound into every envelope.
type Config struct {
	// AppID is the "app" entry of envelope and DEK contexts.
	AppID string
	// MasterKeyID selects the KMS master key used to unwrap embedded DEK copies.
	MasterKeyID string
	// Algorithm is used for new envelopes. Decryption follows the envelope's own "alg".
	Algorithm cryptoDomain.Algorithm
}

// envelopeUseCase implements EnvelopeUseCase.
type envelopeUseCase struct {
	dekProvider DEKProvider
	kms         cryptoService.KMSClient
	aeadManager cryptoService.AEADManager
	config      Config
	logger      *slog.Logger
}

// EncryptForUser seals plaintext with a fresh nonce under the user's current DEK.
// The AAD is the canonical serialization of {app, uid, scope, kver, ver}.
func (e *envelopeUseCase) EncryptForUser(
	ctx context.Context,
	userID int64,
	purpose string,
	plaintext []byte,
) (*cryptoDomain.Envelope, error) {
	if purpose == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "purpose label is required")
	}

	dek, key, err := e.dekProvider.GetPlaintextDEK(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	encCtx := cryptoDomain.NewEnvelopeContext(
		e.config.AppID,
		userkeyDomain.FormatUserID(userID),
		purpose,
		key.KeyVersionString(),
	)
	aad, err := encCtx.Serialize(cryptoDomain.SerializeCanonical)
	if err != nil {
		return nil, err
	}

	cipher, err := e.aeadManager.CreateCipher(dek, e.config.Algorithm)
	if err != nil {
		return nil, err
	}

	box, err := cipher.Seal(plaintext, aad)
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.Envelope{
		FormatVersion:  cryptoDomain.EnvelopeFormatV1,
		Algorithm:      e.config.Algorithm,
		Nonce:          box.Nonce,
		AuthTag:        box.Tag,
		Ciphertext:     box.Ciphertext,
		WrappedDEK:     bytes.Clone(key.WrappedDEK),
		Context:        encCtx,
		AssociatedData: aad,
	}, nil
}

// DecryptForUser unwraps the envelope's embedded DEK under the envelope's key
// version and tries each AAD candidate in turn.
func (e *envelopeUseCase) DecryptForUser(
	ctx context.Context,
	userID int64,
	envelope *cryptoDomain.Envelope,
) ([]byte, error) {
	if envelope == nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrUnsupportedFormat, "missing envelope")
	}
	if userID <= 0 {
		return nil, userkeyDomain.ErrInvalidUserID
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}

	uid := userkeyDomain.FormatUserID(userID)
	if owner, ok := envelope.Owner(); ok && owner != uid {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	unwrapCtx := cryptoDomain.NewUserDEKContext(e.config.AppID, uid, envelope.KeyVersion())
	dek, err := e.kms.UnwrapDataKey(ctx, envelope.WrappedDEK, unwrapCtx, e.config.MasterKeyID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	cipher, err := e.aeadManager.CreateCipher(dek, envelope.Algorithm)
	if err != nil {
		return nil, err
	}

	return e.open(cipher, envelope, slog.Int64("user_id", userID))
}

// open tries each AAD candidate against the envelope's ciphertext.
func (e *envelopeUseCase) open(
	cipher cryptoService.AEAD,
	envelope *cryptoDomain.Envelope,
	owner slog.Attr,
) ([]byte, error) {
	for i, attempt := range aadAttempts(envelope) {
		plaintext, err := cipher.Open(envelope.Nonce, envelope.Ciphertext, envelope.AuthTag, attempt.aad)
		if err != nil {
			continue
		}
		if i > 0 {
			e.logger.Debug("envelope opened with fallback aad",
				owner,
				slog.String("aad", attempt.name),
			)
		}
		return plaintext, nil
	}

	return nil, cryptoDomain.ErrDecryptionFailed
}

// DecryptString decrypts and checks the result is UTF-8 text.
func (e *envelopeUseCase) DecryptString(
	ctx context.Context,
	userID int64,
	envelope *cryptoDomain.Envelope,
) (string, error) {
	plaintext, err := e.DecryptForUser(ctx, userID, envelope)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(plaintext)

	if !utf8.Valid(plaintext) {
		return "", ErrInvalidUTF8
	}
	return string(plaintext), nil
}

// EncryptShared generates a data key per call, so shared envelopes never share
// key material with each other or with any user.
func (e *envelopeUseCase) EncryptShared(ctx context.Context, plaintext []byte) (*cryptoDomain.Envelope, error) {
	dataKey, err := e.kms.GenerateDataKey(ctx, e.config.MasterKeyID, cryptoDomain.NewAppContext(e.config.AppID))
	if err != nil {
		return nil, err
	}
	defer dataKey.Zero()

	cipher, err := e.aeadManager.CreateCipher(dataKey.Plaintext, e.config.Algorithm)
	if err != nil {
		return nil, err
	}

	box, err := cipher.Seal(plaintext, nil)
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.Envelope{
		FormatVersion: cryptoDomain.EnvelopeFormatV1,
		Algorithm:     e.config.Algorithm,
		Nonce:         box.Nonce,
		AuthTag:       box.Tag,
		Ciphertext:    box.Ciphertext,
		WrappedDEK:    dataKey.Wrapped,
	}, nil
}

// DecryptShared unwraps the embedded key under {app} and opens the envelope.
func (e *envelopeUseCase) DecryptShared(ctx context.Context, envelope *cryptoDomain.Envelope) ([]byte, error) {
	if envelope == nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrUnsupportedFormat, "missing envelope")
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	if _, owned := envelope.Owner(); owned {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	unwrapCtx := cryptoDomain.NewAppContext(e.config.AppID)
	dek, err := e.kms.UnwrapDataKey(ctx, envelope.WrappedDEK, unwrapCtx, e.config.MasterKeyID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	cipher, err := e.aeadManager.CreateCipher(dek, envelope.Algorithm)
	if err != nil {
		return nil, err
	}

	return e.open(cipher, envelope, slog.String("scope", "app"))
}

// NewEnvelopeUseCase creates a new EnvelopeUseCase.
func NewEnvelopeUseCase(
	dekProvider DEKProvider,
	kms cryptoService.KMSClient,
	aeadManager cryptoService.AEADManager,
	config Config,
	logger *slog.Logger,
) EnvelopeUseCase {
	if config.Algorithm == "" {
		config.Algorithm = cryptoDomain.AESGCM
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &envelopeUseCase{
		dekProvider: dekProvider,
		kms:         kms,
		aeadManager: aeadManager,
		config:      config,
		logger:      logger,
	}
}
