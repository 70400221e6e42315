package usecase

import (
	"context"
	"time"

	"github.com/nemory/userkeys/internal/metrics"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// userKeyUseCaseWithMetrics decorates UserKeyUseCase with metrics instrumentation.
type userKeyUseCaseWithMetrics struct {
	next    UserKeyUseCase
	metrics metrics.BusinessMetrics
}

// NewUserKeyUseCaseWithMetrics wraps a UserKeyUseCase with metrics recording.
func NewUserKeyUseCaseWithMetrics(useCase UserKeyUseCase, m metrics.BusinessMetrics) UserKeyUseCase {
	return &userKeyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *userKeyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.Status(err)
	u.metrics.RecordOperation(ctx, metrics.DomainUserKeys, operation, status)
	u.metrics.RecordDuration(ctx, metrics.DomainUserKeys, operation, time.Since(start), status)
}

// EnsureUserKey records metrics for key provisioning lookups.
func (u *userKeyUseCaseWithMetrics) EnsureUserKey(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	start := time.Now()
	key, err := u.next.EnsureUserKey(ctx, userID)
	u.record(ctx, "user_key_ensure", start, err)
	return key, err
}

// GetPlaintextDEK records metrics for DEK unwrap operations.
func (u *userKeyUseCaseWithMetrics) GetPlaintextDEK(
	ctx context.Context,
	userID int64,
) ([]byte, *userkeyDomain.UserKey, error) {
	start := time.Now()
	dek, key, err := u.next.GetPlaintextDEK(ctx, userID)
	u.record(ctx, "user_key_unwrap", start, err)
	return dek, key, err
}

// GetUserKey records metrics for key metadata lookups.
func (u *userKeyUseCaseWithMetrics) GetUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	start := time.Now()
	key, err := u.next.GetUserKey(ctx, userID)
	u.record(ctx, "user_key_get", start, err)
	return key, err
}

// RotateUserKey records metrics for key rotation.
func (u *userKeyUseCaseWithMetrics) RotateUserKey(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	start := time.Now()
	key, err := u.next.RotateUserKey(ctx, userID)
	u.record(ctx, "user_key_rotate", start, err)
	return key, err
}
