package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/smithy-go"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// AWSKMSAPI is the subset of the AWS KMS client used by AWSKMSClient.
type AWSKMSAPI interface {
	GenerateDataKey(
		ctx context.Context,
		params *kms.GenerateDataKeyInput,
		optFns ...func(*kms.Options),
	) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// AWSKMSClient implements KMSClient with AWS KMS. The encryption context is passed
// as the KMS EncryptionContext, so AWS enforces the binding itself.
type AWSKMSClient struct {
	api AWSKMSAPI
}

// NewAWSKMSClient creates an AWSKMSClient around an existing KMS API.
func NewAWSKMSClient(api AWSKMSAPI) *AWSKMSClient {
	return &AWSKMSClient{api: api}
}

// NewAWSKMSClientFromConfig loads the default AWS credential chain and builds a client.
// Region and endpoint are optional overrides; the SDK retryer is limited to a single
// attempt so failures surface immediately.
func NewAWSKMSClientFromConfig(ctx context.Context, region, endpoint string) (*AWSKMSClient, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(1),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := kms.NewFromConfig(cfg, func(o *kms.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return NewAWSKMSClient(client), nil
}

// GenerateDataKey asks KMS for an AES-256 data key bound to encCtx.
func (a *AWSKMSClient) GenerateDataKey(
	ctx context.Context,
	masterKeyID string,
	encCtx cryptoDomain.EncryptionContext,
) (*cryptoDomain.DataKey, error) {
	out, err := a.api.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:             aws.String(masterKeyID),
		KeySpec:           kmstypes.DataKeySpecAes256,
		EncryptionContext: encCtx.Map(),
	})
	if err != nil {
		return nil, mapAWSKMSError(err)
	}

	if len(out.Plaintext) != cryptoDomain.KeySize || len(out.CiphertextBlob) == 0 {
		cryptoDomain.Zero(out.Plaintext)
		return nil, fmt.Errorf("%w: malformed GenerateDataKey response", cryptoDomain.ErrKeyServiceUnavailable)
	}

	return &cryptoDomain.DataKey{Plaintext: out.Plaintext, Wrapped: out.CiphertextBlob}, nil
}

// UnwrapDataKey decrypts wrappedKey with KMS under encCtx.
func (a *AWSKMSClient) UnwrapDataKey(
	ctx context.Context,
	wrappedKey []byte,
	encCtx cryptoDomain.EncryptionContext,
	masterKeyID string,
) ([]byte, error) {
	out, err := a.api.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    wrappedKey,
		EncryptionContext: encCtx.Map(),
		KeyId:             aws.String(masterKeyID),
	})
	if err != nil {
		return nil, mapAWSKMSError(err)
	}

	if len(out.Plaintext) != cryptoDomain.KeySize {
		cryptoDomain.Zero(out.Plaintext)
		return nil, fmt.Errorf("%w: malformed Decrypt response", cryptoDomain.ErrKeyServiceUnavailable)
	}

	return out.Plaintext, nil
}

// mapAWSKMSError translates AWS KMS error codes into the key-service taxonomy.
func mapAWSKMSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidCiphertextException", "IncorrectKeyException":
			return fmt.Errorf("%w: %w", cryptoDomain.ErrContextMismatch, err)
		case "AccessDeniedException",
			"DisabledException",
			"NotFoundException",
			"InvalidKeyUsageException",
			"KMSInvalidStateException",
			"InvalidGrantTokenException":
			return fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServicePermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServiceUnavailable, err)
}
