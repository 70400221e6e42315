// Package mocks provides mock implementations of the user key interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// MockUserKeyRepository is a mock implementation of UserKeyRepository.
type MockUserKeyRepository struct {
	mock.Mock
}

// NewMockUserKeyRepository creates a MockUserKeyRepository that asserts its
// expectations when the test ends.
func NewMockUserKeyRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserKeyRepository {
	m := &MockUserKeyRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create mocks the Create method.
func (m *MockUserKeyRepository) Create(ctx context.Context, key *userkeyDomain.UserKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// FindByUserID mocks the FindByUserID method.
func (m *MockUserKeyRepository) FindByUserID(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userkeyDomain.UserKey), args.Error(1)
}

// FindByUserIDForUpdate mocks the FindByUserIDForUpdate method.
func (m *MockUserKeyRepository) FindByUserIDForUpdate(
	ctx context.Context,
	userID int64,
) (*userkeyDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userkeyDomain.UserKey), args.Error(1)
}

// UpdateWrappedDEK mocks the UpdateWrappedDEK method.
func (m *MockUserKeyRepository) UpdateWrappedDEK(
	ctx context.Context,
	key *userkeyDomain.UserKey,
	expectedVersion int,
) error {
	args := m.Called(ctx, key, expectedVersion)
	return args.Error(0)
}

// MockUserKeyUseCase is a mock implementation of UserKeyUseCase.
type MockUserKeyUseCase struct {
	mock.Mock
}

// NewMockUserKeyUseCase creates a MockUserKeyUseCase that asserts its expectations
// when the test ends.
func NewMockUserKeyUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUserKeyUseCase {
	m := &MockUserKeyUseCase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// EnsureUserKey mocks the EnsureUserKey method.
func (m *MockUserKeyUseCase) EnsureUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userkeyDomain.UserKey), args.Error(1)
}

// GetPlaintextDEK mocks the GetPlaintextDEK method.
func (m *MockUserKeyUseCase) GetPlaintextDEK(
	ctx context.Context,
	userID int64,
) ([]byte, *userkeyDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	var dek []byte
	if args.Get(0) != nil {
		dek = args.Get(0).([]byte)
	}
	var key *userkeyDomain.UserKey
	if args.Get(1) != nil {
		key = args.Get(1).(*userkeyDomain.UserKey)
	}
	return dek, key, args.Error(2)
}

// GetUserKey mocks the GetUserKey method.
func (m *MockUserKeyUseCase) GetUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userkeyDomain.UserKey), args.Error(1)
}

// RotateUserKey mocks the RotateUserKey method.
func (m *MockUserKeyUseCase) RotateUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userkeyDomain.UserKey), args.Error(1)
}
