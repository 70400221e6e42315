// Package mocks provides mock implementations of the crypto service interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// MockKMSClient is a mock implementation of KMSClient.
type MockKMSClient struct {
	mock.Mock
}

// NewMockKMSClient creates a MockKMSClient that asserts its expectations when the
// test ends.
func NewMockKMSClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockKMSClient {
	m := &MockKMSClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// GenerateDataKey mocks the GenerateDataKey method.
func (m *MockKMSClient) GenerateDataKey(
	ctx context.Context,
	masterKeyID string,
	encCtx cryptoDomain.EncryptionContext,
) (*cryptoDomain.DataKey, error) {
	args := m.Called(ctx, masterKeyID, encCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.DataKey), args.Error(1)
}

// UnwrapDataKey mocks the UnwrapDataKey method.
func (m *MockKMSClient) UnwrapDataKey(
	ctx context.Context,
	wrappedKey []byte,
	encCtx cryptoDomain.EncryptionContext,
	masterKeyID string,
) ([]byte, error) {
	args := m.Called(ctx, wrappedKey, encCtx, masterKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
