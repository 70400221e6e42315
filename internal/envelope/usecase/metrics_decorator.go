package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	"github.com/nemory/userkeys/internal/metrics"
)

// envelopeUseCaseWithMetrics decorates EnvelopeUseCase with metrics instrumentation.
type envelopeUseCaseWithMetrics struct {
	next    EnvelopeUseCase
	metrics metrics.BusinessMetrics
}

// NewEnvelopeUseCaseWithMetrics wraps an EnvelopeUseCase with metrics recording.
func NewEnvelopeUseCaseWithMetrics(useCase EnvelopeUseCase, m metrics.BusinessMetrics) EnvelopeUseCase {
	return &envelopeUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// EncryptForUser records metrics for envelope encryption.
func (e *envelopeUseCaseWithMetrics) EncryptForUser(
	ctx context.Context,
	userID int64,
	purpose string,
	plaintext []byte,
) (*cryptoDomain.Envelope, error) {
	start := time.Now()
	envelope, err := e.next.EncryptForUser(ctx, userID, purpose, plaintext)

	status := metrics.Status(err)
	e.metrics.RecordOperation(ctx, metrics.DomainEnvelopes, "envelope_encrypt", status)
	e.metrics.RecordDuration(ctx, metrics.DomainEnvelopes, "envelope_encrypt", time.Since(start), status)

	return envelope, err
}

// DecryptForUser records metrics for envelope decryption.
func (e *envelopeUseCaseWithMetrics) DecryptForUser(
	ctx context.Context,
	userID int64,
	envelope *cryptoDomain.Envelope,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := e.next.DecryptForUser(ctx, userID, envelope)

	status := metrics.Status(err)
	e.metrics.RecordOperation(ctx, metrics.DomainEnvelopes, "envelope_decrypt", status)
	e.metrics.RecordDuration(ctx, metrics.DomainEnvelopes, "envelope_decrypt", time.Since(start), status)

	return plaintext, err
}

// DecryptString records metrics for text envelope decryption.
func (e *envelopeUseCaseWithMetrics) DecryptString(
	ctx context.Context,
	userID int64,
	envelope *cryptoDomain.Envelope,
) (string, error) {
	start := time.Now()
	text, err := e.next.DecryptString(ctx, userID, envelope)

	status := metrics.Status(err)
	e.metrics.RecordOperation(ctx, metrics.DomainEnvelopes, "envelope_decrypt_string", status)
	e.metrics.RecordDuration(ctx, metrics.DomainEnvelopes, "envelope_decrypt_string", time.Since(start), status)

	return text, err
}

// EncryptShared records metrics for app-scoped encryption.
func (e *envelopeUseCaseWithMetrics) EncryptShared(
	ctx context.Context,
	plaintext []byte,
) (*cryptoDomain.Envelope, error) {
	start := time.Now()
	envelope, err := e.next.EncryptShared(ctx, plaintext)

	status := metrics.Status(err)
	e.metrics.RecordOperation(ctx, metrics.DomainEnvelopes, "shared_encrypt", status)
	e.metrics.RecordDuration(ctx, metrics.DomainEnvelopes, "shared_encrypt", time.Since(start), status)

	return envelope, err
}

// DecryptShared records metrics for app-scoped decryption.
func (e *envelopeUseCaseWithMetrics) DecryptShared(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := e.next.DecryptShared(ctx, envelope)

	status := metrics.Status(err)
	e.metrics.RecordOperation(ctx, metrics.DomainEnvelopes, "shared_decrypt", status)
	e.metrics.RecordDuration(ctx, metrics.DomainEnvelopes, "shared_decrypt", time.Since(start), status)

	return plaintext, err
}
