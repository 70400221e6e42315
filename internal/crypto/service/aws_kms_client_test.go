package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// fakeAWSKMS records the last request and returns canned responses.
type fakeAWSKMS struct {
	generateInput *kms.GenerateDataKeyInput
	decryptInput  *kms.DecryptInput

	generateOutput *kms.GenerateDataKeyOutput
	decryptOutput  *kms.DecryptOutput
	err            error
}

func (f *fakeAWSKMS) GenerateDataKey(
	_ context.Context,
	params *kms.GenerateDataKeyInput,
	_ ...func(*kms.Options),
) (*kms.GenerateDataKeyOutput, error) {
	f.generateInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.generateOutput, nil
}

func (f *fakeAWSKMS) Decrypt(
	_ context.Context,
	params *kms.DecryptInput,
	_ ...func(*kms.Options),
) (*kms.DecryptOutput, error) {
	f.decryptInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.decryptOutput, nil
}

func TestAWSKMSClient_GenerateDataKey(t *testing.T) {
	ctx := context.Background()
	encCtx := cryptoDomain.NewUserDEKContext("nemory", "42", "1")

	t.Run("passes context and key spec", func(t *testing.T) {
		plaintext := newTestKey(t)
		api := &fakeAWSKMS{generateOutput: &kms.GenerateDataKeyOutput{
			Plaintext:      plaintext,
			CiphertextBlob: []byte("wrapped"),
		}}
		client := NewAWSKMSClient(api)

		dataKey, err := client.GenerateDataKey(ctx, "alias/nemory-app", encCtx)
		require.NoError(t, err)
		assert.Equal(t, plaintext, dataKey.Plaintext)
		assert.Equal(t, []byte("wrapped"), dataKey.Wrapped)

		assert.Equal(t, "alias/nemory-app", aws.ToString(api.generateInput.KeyId))
		assert.Equal(t, kmstypes.DataKeySpecAes256, api.generateInput.KeySpec)
		assert.Equal(t, map[string]string{
			"app":   "nemory",
			"scope": "user_dek",
			"uid":   "42",
			"kver":  "1",
		}, api.generateInput.EncryptionContext)
	})

	t.Run("rejects short plaintext", func(t *testing.T) {
		api := &fakeAWSKMS{generateOutput: &kms.GenerateDataKeyOutput{
			Plaintext:      make([]byte, 16),
			CiphertextBlob: []byte("wrapped"),
		}}
		_, err := NewAWSKMSClient(api).GenerateDataKey(ctx, "alias/nemory-app", encCtx)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyServiceUnavailable)
	})
}

func TestAWSKMSClient_UnwrapDataKey(t *testing.T) {
	ctx := context.Background()
	encCtx := cryptoDomain.NewUserDEKContext("nemory", "42", "3")
	plaintext := newTestKey(t)

	api := &fakeAWSKMS{decryptOutput: &kms.DecryptOutput{Plaintext: plaintext}}
	client := NewAWSKMSClient(api)

	key, err := client.UnwrapDataKey(ctx, []byte("wrapped"), encCtx, "alias/nemory-app")
	require.NoError(t, err)
	assert.Equal(t, plaintext, key)
	assert.Equal(t, []byte("wrapped"), api.decryptInput.CiphertextBlob)
	assert.Equal(t, "3", api.decryptInput.EncryptionContext["kver"])
	assert.Equal(t, "alias/nemory-app", aws.ToString(api.decryptInput.KeyId))
}

func TestAWSKMSClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	encCtx := cryptoDomain.NewUserDEKContext("nemory", "42", "1")

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"invalid ciphertext", &smithy.GenericAPIError{Code: "InvalidCiphertextException"}, cryptoDomain.ErrContextMismatch},
		{"incorrect key", &smithy.GenericAPIError{Code: "IncorrectKeyException"}, cryptoDomain.ErrContextMismatch},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, cryptoDomain.ErrKeyServicePermissionDenied},
		{"disabled key", &smithy.GenericAPIError{Code: "DisabledException"}, cryptoDomain.ErrKeyServicePermissionDenied},
		{"missing key", &smithy.GenericAPIError{Code: "NotFoundException"}, cryptoDomain.ErrKeyServicePermissionDenied},
		{"pending deletion", &smithy.GenericAPIError{Code: "KMSInvalidStateException"}, cryptoDomain.ErrKeyServicePermissionDenied},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, cryptoDomain.ErrKeyServiceUnavailable},
		{"internal", &smithy.GenericAPIError{Code: "KMSInternalException"}, cryptoDomain.ErrKeyServiceUnavailable},
		{"network", errors.New("dial tcp: i/o timeout"), cryptoDomain.ErrKeyServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewAWSKMSClient(&fakeAWSKMS{err: tt.err})

			_, err := client.GenerateDataKey(ctx, "alias/nemory-app", encCtx)
			assert.ErrorIs(t, err, tt.expected)
			assert.ErrorIs(t, err, tt.err)

			_, err = client.UnwrapDataKey(ctx, []byte("wrapped"), encCtx, "alias/nemory-app")
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
