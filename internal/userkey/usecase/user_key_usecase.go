package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	cryptoService "github.com/nemory/userkeys/internal/crypto/service"
	"github.com/nemory/userkeys/internal/database"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// Config holds the identifiers bound into every user DEK context.
type Config struct {
	// AppID is the "app" entry of the KMS encryption context.
	AppID string
	// MasterKeyID selects the KMS master key that wraps user DEKs.
	MasterKeyID string
}

// userKeyUseCase implements UserKeyUseCase.
type userKeyUseCase struct {
	txManager database.TxManager
	repo      UserKeyRepository
	kms       cryptoService.KMSClient
	config    Config
	logger    *slog.Logger
}

// EnsureUserKey returns the existing record or provisions a new one with key version 1.
// Losing a provisioning race to another writer is not an error: the winner's record is
// read back and returned.
func (u *userKeyUseCase) EnsureUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	if userID <= 0 {
		return nil, userkeyDomain.ErrInvalidUserID
	}

	key, err := u.repo.FindByUserID(ctx, userID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, userkeyDomain.ErrUserKeyNotFound) {
		return nil, err
	}

	encCtx := cryptoDomain.NewUserDEKContext(
		u.config.AppID,
		userkeyDomain.FormatUserID(userID),
		cryptoDomain.ContextFormatV1,
	)
	dataKey, err := u.kms.GenerateDataKey(ctx, u.config.MasterKeyID, encCtx)
	if err != nil {
		return nil, err
	}
	// Only the wrapped form is stored; every use unwraps again.
	dataKey.Zero()

	now := time.Now().UTC()
	key = &userkeyDomain.UserKey{
		UserID:     userID,
		WrappedDEK: dataKey.Wrapped,
		KeyVersion: userkeyDomain.InitialKeyVersion,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = u.repo.Create(ctx, key)
	if errors.Is(err, userkeyDomain.ErrConcurrentProvisioning) {
		u.logger.Warn("user key provisioned concurrently, using stored key",
			slog.Int64("user_id", userID),
		)
		return u.repo.FindByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	u.logger.Info("user key provisioned",
		slog.Int64("user_id", userID),
		slog.Int("key_version", key.KeyVersion),
	)
	return key, nil
}

// GetPlaintextDEK provisions if needed and unwraps the current DEK.
func (u *userKeyUseCase) GetPlaintextDEK(
	ctx context.Context,
	userID int64,
) ([]byte, *userkeyDomain.UserKey, error) {
	key, err := u.EnsureUserKey(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	encCtx := cryptoDomain.NewUserDEKContext(
		u.config.AppID,
		userkeyDomain.FormatUserID(userID),
		key.KeyVersionString(),
	)
	dek, err := u.kms.UnwrapDataKey(ctx, key.WrappedDEK, encCtx, u.config.MasterKeyID)
	if err != nil {
		return nil, nil, err
	}
	return dek, key, nil
}

// GetUserKey returns the stored record or ErrUserKeyNotFound.
func (u *userKeyUseCase) GetUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	if userID <= 0 {
		return nil, userkeyDomain.ErrInvalidUserID
	}
	return u.repo.FindByUserID(ctx, userID)
}

// RotateUserKey generates a DEK for version n+1 and swaps it in. The record is read
// with a row lock inside one transaction, so concurrent rotations of the same user
// serialize; the version check in UpdateWrappedDEK still guards writers that bypass
// the lock.
func (u *userKeyUseCase) RotateUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	if userID <= 0 {
		return nil, userkeyDomain.ErrInvalidUserID
	}

	var previousVersion int
	var rotated *userkeyDomain.UserKey

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := u.repo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		next := &userkeyDomain.UserKey{
			UserID:     userID,
			KeyVersion: current.KeyVersion + 1,
			CreatedAt:  current.CreatedAt,
			UpdatedAt:  time.Now().UTC(),
		}

		encCtx := cryptoDomain.NewUserDEKContext(
			u.config.AppID,
			userkeyDomain.FormatUserID(userID),
			next.KeyVersionString(),
		)
		dataKey, err := u.kms.GenerateDataKey(ctx, u.config.MasterKeyID, encCtx)
		if err != nil {
			return err
		}
		dataKey.Zero()
		next.WrappedDEK = dataKey.Wrapped

		if err := u.repo.UpdateWrappedDEK(ctx, next, current.KeyVersion); err != nil {
			return err
		}

		previousVersion = current.KeyVersion
		rotated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("user key rotated",
		slog.Int64("user_id", userID),
		slog.Int("previous_version", previousVersion),
		slog.Int("key_version", rotated.KeyVersion),
	)
	return rotated, nil
}

// NewUserKeyUseCase creates a new UserKeyUseCase.
func NewUserKeyUseCase(
	txManager database.TxManager,
	repo UserKeyRepository,
	kms cryptoService.KMSClient,
	config Config,
	logger *slog.Logger,
) UserKeyUseCase {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &userKeyUseCase{
		txManager: txManager,
		repo:      repo,
		kms:       kms,
		config:    config,
		logger:    logger,
	}
}
