// Package mocks provides mock implementations of the envelope interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// MockEnvelopeUseCase is a mock implementation of EnvelopeUseCase.
type MockEnvelopeUseCase struct {
	mock.Mock
}

// NewMockEnvelopeUseCase creates a MockEnvelopeUseCase that asserts its
// expectations when the test ends.
func NewMockEnvelopeUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEnvelopeUseCase {
	m := &MockEnvelopeUseCase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// EncryptForUser mocks the EncryptForUser method.
func (m *MockEnvelopeUseCase) EncryptForUser(
	ctx context.Context,
	userID int64,
	purpose string,
	plaintext []byte,
) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, userID, purpose, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}

// DecryptForUser mocks the DecryptForUser method.
func (m *MockEnvelopeUseCase) DecryptForUser(
	ctx context.Context,
	userID int64,
	envelope *cryptoDomain.Envelope,
) ([]byte, error) {
	args := m.Called(ctx, userID, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// DecryptString mocks the DecryptString method.
func (m *MockEnvelopeUseCase) DecryptString(
	ctx context.Context,
	userID int64,
	envelope *cryptoDomain.Envelope,
) (string, error) {
	args := m.Called(ctx, userID, envelope)
	return args.String(0), args.Error(1)
}

// EncryptShared mocks the EncryptShared method.
func (m *MockEnvelopeUseCase) EncryptShared(ctx context.Context, plaintext []byte) (*cryptoDomain.Envelope, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Envelope), args.Error(1)
}

// DecryptShared mocks the DecryptShared method.
func (m *MockEnvelopeUseCase) DecryptShared(ctx context.Context, envelope *cryptoDomain.Envelope) ([]byte, error) {
	args := m.Called(ctx, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDEKProvider is a mock implementation of DEKProvider.
type MockDEKProvider struct {
	mock.Mock
}

// NewMockDEKProvider creates a MockDEKProvider that asserts its expectations when
// the test ends.
func NewMockDEKProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDEKProvider {
	m := &MockDEKProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// GetPlaintextDEK mocks the GetPlaintextDEK method.
func (m *MockDEKProvider) GetPlaintextDEK(
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
