package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	cryptoService "github.com/nemory/userkeys/internal/crypto/service"
	cryptoServiceMocks "github.com/nemory/userkeys/internal/crypto/service/mocks"
	databaseMocks "github.com/nemory/userkeys/internal/database/mocks"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
	userkeyMocks "github.com/nemory/userkeys/internal/userkey/usecase/mocks"
)

// memoryUserKeyRepository enforces the same uniqueness rules as the SQL repositories.
type memoryUserKeyRepository struct {
	mu      sync.Mutex
	keys    map[int64]userkeyDomain.UserKey
	creates int
}

func newMemoryUserKeyRepository() *memoryUserKeyRepository {
	return &memoryUserKeyRepository{keys: make(map[int64]userkeyDomain.UserKey)}
}

func (r *memoryUserKeyRepository) Create(_ context.Context, key *userkeyDomain.UserKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.UserID]; ok {
		return userkeyDomain.ErrConcurrentProvisioning
	}
	r.keys[key.UserID] = *key
	r.creates++
	return nil
}

func (r *memoryUserKeyRepository) FindByUserID(_ context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[userID]
	if !ok {
		return nil, userkeyDomain.ErrUserKeyNotFound
	}
	return &key, nil
}

func (r *memoryUserKeyRepository) FindByUserIDForUpdate(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *memoryUserKeyRepository) UpdateWrappedDEK(
	_ context.Context,
	key *userkeyDomain.UserKey,
	expectedVersion int,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.keys[key.UserID]
	if !ok || stored.KeyVersion != expectedVersion {
		return userkeyDomain.ErrKeyVersionConflict
	}
	r.keys[key.UserID] = *key
	return nil
}

// inlineTxManager runs the unit of work directly; the memory repository has no
// transactions to join.
type inlineTxManager struct{}

func (inlineTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newLocalMasterKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func newTestKMS(t *testing.T) *cryptoService.KeeperKMSClient {
	t.Helper()
	client := cryptoService.NewKeeperKMSClient(cryptoService.NewKMSService())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUserKeyUseCase_EnsureUserKey(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions on first use", func(t *testing.T) {
		repo := newMemoryUserKeyRepository()
		kms := newTestKMS(t)
		config := Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, config, nil)

		key, err := uc.EnsureUserKey(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), key.UserID)
		assert.Equal(t, userkeyDomain.InitialKeyVersion, key.KeyVersion)
		assert.NotEmpty(t, key.WrappedDEK)
		assert.False(t, key.CreatedAt.IsZero())

		// wrapped under {app, scope:user_dek, uid, kver:"1"}
		dek, err := kms.UnwrapDataKey(ctx, key.WrappedDEK,
			cryptoDomain.NewUserDEKContext("nemory", "42", "1"), config.MasterKeyID)
		require.NoError(t, err)
		assert.Len(t, dek, cryptoDomain.KeySize)
	})

	t.Run("returns existing record unchanged", func(t *testing.T) {
		repo := newMemoryUserKeyRepository()
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, newTestKMS(t), Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}, nil)

		first, err := uc.EnsureUserKey(ctx, 42)
		require.NoError(t, err)
		second, err := uc.EnsureUserKey(ctx, 42)
		require.NoError(t, err)

		assert.Equal(t, first.WrappedDEK, second.WrappedDEK)
		assert.Equal(t, 1, repo.creates)
	})

	t.Run("lost race re-reads the winner", func(t *testing.T) {
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		winner := &userkeyDomain.UserKey{UserID: 42, WrappedDEK: []byte("winner"), KeyVersion: 1}

		repo.On("FindByUserID", ctx, int64(42)).Return(nil, userkeyDomain.ErrUserKeyNotFound).Once()
		kms.On("GenerateDataKey", ctx, "mk", cryptoDomain.NewUserDEKContext("nemory", "42", "1")).
			Return(&cryptoDomain.DataKey{Plaintext: make([]byte, 32), Wrapped: []byte("loser")}, nil).
			Once()
		repo.On("Create", ctx, mock.MatchedBy(func(k *userkeyDomain.UserKey) bool {
			return string(k.WrappedDEK) == "loser" && k.KeyVersion == 1
		})).Return(userkeyDomain.ErrConcurrentProvisioning).Once()
		repo.On("FindByUserID", ctx, int64(42)).Return(winner, nil).Once()

		key, err := uc.EnsureUserKey(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, winner, key)
	})

	t.Run("kms failure is surfaced and nothing is stored", func(t *testing.T) {
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		repo.On("FindByUserID", ctx, int64(42)).Return(nil, userkeyDomain.ErrUserKeyNotFound).Once()
		kms.On("GenerateDataKey", ctx, "mk", mock.Anything).
			Return(nil, cryptoDomain.ErrKeyServiceUnavailable).
			Once()

		key, err := uc.EnsureUserKey(ctx, 42)
		assert.Nil(t, key)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyServiceUnavailable)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("storage failure is surfaced", func(t *testing.T) {
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		dbErr := errors.New("connection refused")
		repo.On("FindByUserID", ctx, int64(42)).Return(nil, dbErr).Once()

		_, err := uc.EnsureUserKey(ctx, 42)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("invalid user id", func(t *testing.T) {
		uc := NewUserKeyUseCase(inlineTxManager{}, newMemoryUserKeyRepository(), newTestKMS(t), Config{}, nil)
		for _, id := range []int64{0, -1} {
			_, err := uc.EnsureUserKey(ctx, id)
			assert.ErrorIs(t, err, userkeyDomain.ErrInvalidUserID)
		}
	})
}

func TestUserKeyUseCase_EnsureUserKey_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserKeyRepository()
	uc := NewUserKeyUseCase(inlineTxManager{}, repo, newTestKMS(t), Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}, nil)

	const workers = 16
	results := make([]*userkeyDomain.UserKey, workers)

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			key, err := uc.EnsureUserKey(ctx, 7)
			results[i] = key
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, repo.creates)
	for _, key := range results {
		assert.Equal(t, results[0].WrappedDEK, key.WrappedDEK)
	}
}

func TestUserKeyUseCase_GetPlaintextDEK(t *testing.T) {
	ctx := context.Background()

	t.Run("stable across calls", func(t *testing.T) {
		uc := NewUserKeyUseCase(inlineTxManager{}, newMemoryUserKeyRepository(), newTestKMS(t),
			Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}, nil)

		dek1, key, err := uc.GetPlaintextDEK(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, dek1, cryptoDomain.KeySize)
		assert.Equal(t, 1, key.KeyVersion)

		dek2, _, err := uc.GetPlaintextDEK(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, dek1, dek2)
	})

	t.Run("users get independent keys", func(t *testing.T) {
		uc := NewUserKeyUseCase(inlineTxManager{}, newMemoryUserKeyRepository(), newTestKMS(t),
			Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}, nil)

		dek42, _, err := uc.GetPlaintextDEK(ctx, 42)
		require.NoError(t, err)
		dek43, _, err := uc.GetPlaintextDEK(ctx, 43)
		require.NoError(t, err)
		assert.NotEqual(t, dek42, dek43)
	})

	t.Run("unwraps with the record's key version", func(t *testing.T) {
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		record := &userkeyDomain.UserKey{UserID: 42, WrappedDEK: []byte("wrapped"), KeyVersion: 3}
		repo.On("FindByUserID", ctx, int64(42)).Return(record, nil).Once()
		kms.On("UnwrapDataKey", ctx, []byte("wrapped"), cryptoDomain.NewUserDEKContext("nemory", "42", "3"), "mk").
			Return(make([]byte, 32), nil).
			Once()

		dek, key, err := uc.GetPlaintextDEK(ctx, 42)
		require.NoError(t, err)
		assert.Len(t, dek, 32)
		assert.Equal(t, record, key)
	})

	t.Run("context mismatch is propagated", func(t *testing.T) {
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		repo.On("FindByUserID", ctx, int64(42)).
			Return(&userkeyDomain.UserKey{UserID: 42, WrappedDEK: []byte("x"), KeyVersion: 1}, nil).
			Once()
		kms.On("UnwrapDataKey", ctx, []byte("x"), mock.Anything, "mk").
			Return(nil, cryptoDomain.ErrContextMismatch).
			Once()

		dek, key, err := uc.GetPlaintextDEK(ctx, 42)
		assert.Nil(t, dek)
		assert.Nil(t, key)
		assert.ErrorIs(t, err, cryptoDomain.ErrContextMismatch)
	})
}

func TestUserKeyUseCase_GetUserKey(t *testing.T) {
	ctx := context.Background()
	uc := NewUserKeyUseCase(inlineTxManager{}, newMemoryUserKeyRepository(), newTestKMS(t),
		Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}, nil)

	_, err := uc.GetUserKey(ctx, 42)
	assert.ErrorIs(t, err, userkeyDomain.ErrUserKeyNotFound)

	provisioned, err := uc.EnsureUserKey(ctx, 42)
	require.NoError(t, err)

	key, err := uc.GetUserKey(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, provisioned, key)
}

func TestUserKeyUseCase_RotateUserKey(t *testing.T) {
	ctx := context.Background()

	t.Run("bumps version and keeps old key unwrappable", func(t *testing.T) {
		repo := newMemoryUserKeyRepository()
		kms := newTestKMS(t)
		config := Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}
		uc := NewUserKeyUseCase(inlineTxManager{}, repo, kms, config, nil)

		oldDEK, original, err := uc.GetPlaintextDEK(ctx, 42)
		require.NoError(t, err)

		rotated, err := uc.RotateUserKey(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, 2, rotated.KeyVersion)
		assert.NotEqual(t, original.WrappedDEK, rotated.WrappedDEK)
		assert.Equal(t, original.CreatedAt, rotated.CreatedAt)
		assert.WithinDuration(t, time.Now(), rotated.UpdatedAt, time.Minute)

		newDEK, current, err := uc.GetPlaintextDEK(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, 2, current.KeyVersion)
		assert.NotEqual(t, oldDEK, newDEK)

		stillOld, err := kms.UnwrapDataKey(ctx, original.WrappedDEK,
			cryptoDomain.NewUserDEKContext("nemory", "42", "1"), config.MasterKeyID)
		require.NoError(t, err)
		assert.Equal(t, oldDEK, stillOld)

		_, err = kms.UnwrapDataKey(ctx, rotated.WrappedDEK,
			cryptoDomain.NewUserDEKContext("nemory", "42", "1"), config.MasterKeyID)
		assert.ErrorIs(t, err, cryptoDomain.ErrContextMismatch)
	})

	t.Run("unknown user", func(t *testing.T) {
		uc := NewUserKeyUseCase(inlineTxManager{}, newMemoryUserKeyRepository(), newTestKMS(t),
			Config{AppID: "nemory", MasterKeyID: newLocalMasterKey(t)}, nil)

		_, err := uc.RotateUserKey(ctx, 42)
		assert.ErrorIs(t, err, userkeyDomain.ErrUserKeyNotFound)
	})

	t.Run("concurrent rotation conflicts", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(txManager, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil).
			Once()
		repo.On("FindByUserIDForUpdate", ctx, int64(42)).
			Return(&userkeyDomain.UserKey{UserID: 42, WrappedDEK: []byte("v1"), KeyVersion: 1}, nil).
			Once()
		kms.On("GenerateDataKey", ctx, "mk", cryptoDomain.NewUserDEKContext("nemory", "42", "2")).
			Return(&cryptoDomain.DataKey{Plaintext: make([]byte, 32), Wrapped: []byte("v2")}, nil).
			Once()
		repo.On("UpdateWrappedDEK", ctx, mock.Anything, 1).
			Return(userkeyDomain.ErrKeyVersionConflict).
			Once()

		_, err := uc.RotateUserKey(ctx, 42)
		assert.ErrorIs(t, err, userkeyDomain.ErrKeyVersionConflict)
	})

	t.Run("reads and writes inside one transaction", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(txManager, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil).
			Once()
		repo.On("FindByUserIDForUpdate", ctx, int64(42)).
			Return(&userkeyDomain.UserKey{UserID: 42, WrappedDEK: []byte("v4"), KeyVersion: 4, CreatedAt: created}, nil).
			Once()
		kms.On("GenerateDataKey", ctx, "mk", cryptoDomain.NewUserDEKContext("nemory", "42", "5")).
			Return(&cryptoDomain.DataKey{Plaintext: make([]byte, 32), Wrapped: []byte("v5")}, nil).
			Once()
		repo.On("UpdateWrappedDEK", ctx, mock.MatchedBy(func(k *userkeyDomain.UserKey) bool {
			return k.KeyVersion == 5 && string(k.WrappedDEK) == "v5" && k.CreatedAt.Equal(created)
		}), 4).Return(nil).Once()

		rotated, err := uc.RotateUserKey(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, 5, rotated.KeyVersion)
		repo.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
	})

	t.Run("kms failure aborts the transaction", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(txManager, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(nil).
			Once()
		repo.On("FindByUserIDForUpdate", ctx, int64(42)).
			Return(&userkeyDomain.UserKey{UserID: 42, WrappedDEK: []byte("v1"), KeyVersion: 1}, nil).
			Once()
		kms.On("GenerateDataKey", ctx, "mk", mock.Anything).
			Return(nil, cryptoDomain.ErrKeyServiceUnavailable).
			Once()

		rotated, err := uc.RotateUserKey(ctx, 42)
		assert.Nil(t, rotated)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyServiceUnavailable)
		repo.AssertNotCalled(t, "UpdateWrappedDEK", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transaction begin failure", func(t *testing.T) {
		txManager := databaseMocks.NewMockTxManager(t)
		repo := userkeyMocks.NewMockUserKeyRepository(t)
		kms := cryptoServiceMocks.NewMockKMSClient(t)
		uc := NewUserKeyUseCase(txManager, repo, kms, Config{AppID: "nemory", MasterKeyID: "mk"}, nil)

		dbErr := errors.New("connection refused")
		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).
			Return(dbErr).
			Once()

		_, err := uc.RotateUserKey(ctx, 42)
		assert.ErrorIs(t, err, dbErr)
		kms.AssertNotCalled(t, "GenerateDataKey", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid user id", func(t *testing.T) {
		uc := NewUserKeyUseCase(inlineTxManager{}, newMemoryUserKeyRepository(), newTestKMS(t), Config{}, nil)
		_, err := uc.RotateUserKey(ctx, 0)
		assert.ErrorIs(t, err, userkeyDomain.ErrInvalidUserID)
	})
}
