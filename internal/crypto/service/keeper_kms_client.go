package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"sync"

	"gocloud.dev/gcerrors"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// keeperHeaderSize is the length prefix in front of the bound context.
const keeperHeaderSize = 4

// KeeperKMSClient implements KMSClient on top of gocloud.dev secrets keepers.
//
// The master key id is a keeper URL (awskms://, gcpkms://, azurekeyvault://,
// hashivault://, base64key://). Keepers only encrypt opaque bytes, so the context
// is sealed next to the key:
//
//	wrapped = keeper.Encrypt(len(ctx) || ctx || key)
//
// where ctx is the sorted-key serialization of the encryption context. Unwrap
// compares the sealed context with the requested one and fails with
// ErrContextMismatch when they differ.
type KeeperKMSClient struct {
	kmsService KMSService

	mu      sync.Mutex
	keepers map[string]KMSKeeper
}

// NewKeeperKMSClient creates a KeeperKMSClient that opens keepers through kmsService.
func NewKeeperKMSClient(kmsService KMSService) *KeeperKMSClient {
	return &KeeperKMSClient{
		kmsService: kmsService,
		keepers:    make(map[string]KMSKeeper),
	}
}

// GenerateDataKey creates a random 32-byte key and wraps it with the keeper at masterKeyID.
func (k *KeeperKMSClient) GenerateDataKey(
	ctx context.Context,
	masterKeyID string,
	encCtx cryptoDomain.EncryptionContext,
) (*cryptoDomain.DataKey, error) {
	keeper, err := k.keeper(ctx, masterKeyID)
	if err != nil {
		return nil, err
	}

	boundCtx, err := encCtx.Serialize(cryptoDomain.SerializeSorted)
	if err != nil {
		return nil, err
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	payload := make([]byte, keeperHeaderSize, keeperHeaderSize+len(boundCtx)+len(key))
	binary.BigEndian.PutUint32(payload, uint32(len(boundCtx)))
	payload = append(payload, boundCtx...)
	payload = append(payload, key...)
	defer cryptoDomain.Zero(payload)

	wrapped, err := keeper.Encrypt(ctx, payload)
	if err != nil {
		cryptoDomain.Zero(key)
		return nil, mapKeeperError(err)
	}

	return &cryptoDomain.DataKey{Plaintext: key, Wrapped: wrapped}, nil
}

// UnwrapDataKey decrypts wrappedKey and checks it was sealed under encCtx.
func (k *KeeperKMSClient) UnwrapDataKey(
	ctx context.Context,
	wrappedKey []byte,
	encCtx cryptoDomain.EncryptionContext,
	masterKeyID string,
) ([]byte, error) {
	keeper, err := k.keeper(ctx, masterKeyID)
	if err != nil {
		return nil, err
	}

	want, err := encCtx.Serialize(cryptoDomain.SerializeSorted)
	if err != nil {
		return nil, err
	}

	payload, err := keeper.Decrypt(ctx, wrappedKey)
	if err != nil {
		return nil, mapKeeperError(err)
	}
	defer cryptoDomain.Zero(payload)

	if len(payload) < keeperHeaderSize {
		return nil, cryptoDomain.ErrContextMismatch
	}
	ctxLen := int(binary.BigEndian.Uint32(payload))
	if ctxLen > len(payload)-keeperHeaderSize-cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrContextMismatch
	}

	bound := payload[keeperHeaderSize : keeperHeaderSize+ctxLen]
	if subtle.ConstantTimeCompare(bound, want) != 1 {
		return nil, cryptoDomain.ErrContextMismatch
	}

	sealedKey := payload[keeperHeaderSize+ctxLen:]
	if len(sealedKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrContextMismatch
	}

	key := make([]byte, cryptoDomain.KeySize)
	copy(key, sealedKey)
	return key, nil
}

// Close closes every keeper opened by the client.
func (k *KeeperKMSClient) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var firstErr error
	for uri, keeper := range k.keepers {
		if err := keeper.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(k.keepers, uri)
	}
	return firstErr
}

func (k *KeeperKMSClient) keeper(ctx context.Context, uri string) (KMSKeeper, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if keeper, ok := k.keepers[uri]; ok {
		return keeper, nil
	}

	keeper, err := k.kmsService.OpenKeeper(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServiceUnavailable, err)
	}
	k.keepers[uri] = keeper
	return keeper, nil
}

// mapKeeperError translates gocloud error codes into the key-service taxonomy.
func mapKeeperError(err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.PermissionDenied, gcerrors.NotFound:
		return fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServicePermissionDenied, err)
	case gcerrors.InvalidArgument, gcerrors.FailedPrecondition:
		return fmt.Errorf("%w: %w", cryptoDomain.ErrContextMismatch, err)
	default:
		return fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServiceUnavailable, err)
	}
}
