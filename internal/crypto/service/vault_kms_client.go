package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	vault "github.com/hashicorp/vault/api"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// vaultLogical is the subset of *vault.Logical used by VaultKMSClient.
type vaultLogical interface {
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
}

// VaultKMSClient implements KMSClient with the Vault transit secrets engine.
//
// The master key id is the transit key name. The key must be created with
// derived=true: the sorted-key serialization of the encryption context is sent
// as the transit "context", so Vault derives a different key per context and
// refuses to decrypt under any other.
type VaultKMSClient struct {
	logical vaultLogical
	mount   string
}

// NewVaultKMSClient creates a VaultKMSClient using an existing Vault client.
func NewVaultKMSClient(client *vault.Client, mount string) *VaultKMSClient {
	return &VaultKMSClient{
		logical: client.Logical(),
		mount:   mount,
	}
}

// NewVaultKMSClientFromConfig creates a Vault client for addr and token with
// retries disabled.
func NewVaultKMSClientFromConfig(addr, token, mount string) (*VaultKMSClient, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to load vault config: %w", cfg.Error)
	}
	cfg.Address = addr
	cfg.MaxRetries = 0

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)

	return NewVaultKMSClient(client, mount), nil
}

// GenerateDataKey asks transit for a 256-bit data key derived under encCtx.
func (v *VaultKMSClient) GenerateDataKey(
	ctx context.Context,
	masterKeyID string,
	encCtx cryptoDomain.EncryptionContext,
) (*cryptoDomain.DataKey, error) {
	transitCtx, err := vaultContext(encCtx)
	if err != nil {
		return nil, err
	}

	secret, err := v.logical.WriteWithContext(
		ctx,
		fmt.Sprintf("%s/datakey/plaintext/%s", v.mount, masterKeyID),
		map[string]interface{}{
			"context": transitCtx,
			"bits":    cryptoDomain.KeySize * 8,
		},
	)
	if err != nil {
		return nil, mapVaultError(err)
	}

	plaintext, err := vaultBytes(secret, "plaintext")
	if err != nil {
		return nil, err
	}
	if len(plaintext) != cryptoDomain.KeySize {
		cryptoDomain.Zero(plaintext)
		return nil, fmt.Errorf("%w: unexpected data key size", cryptoDomain.ErrKeyServiceUnavailable)
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok || ciphertext == "" {
		cryptoDomain.Zero(plaintext)
		return nil, fmt.Errorf("%w: missing ciphertext in response", cryptoDomain.ErrKeyServiceUnavailable)
	}

	return &cryptoDomain.DataKey{Plaintext: plaintext, Wrapped: []byte(ciphertext)}, nil
}

// UnwrapDataKey decrypts a "vault:vN:" ciphertext under encCtx.
func (v *VaultKMSClient) UnwrapDataKey(
	ctx context.Context,
	wrappedKey []byte,
	encCtx cryptoDomain.EncryptionContext,
	masterKeyID string,
) ([]byte, error) {
	transitCtx, err := vaultContext(encCtx)
	if err != nil {
		return nil, err
	}

	secret, err := v.logical.WriteWithContext(
		ctx,
		fmt.Sprintf("%s/decrypt/%s", v.mount, masterKeyID),
		map[string]interface{}{
			"ciphertext": string(wrappedKey),
			"context":    transitCtx,
		},
	)
	if err != nil {
		return nil, mapVaultError(err)
	}

	plaintext, err := vaultBytes(secret, "plaintext")
	if err != nil {
		return nil, err
	}
	if len(plaintext) != cryptoDomain.KeySize {
		cryptoDomain.Zero(plaintext)
		return nil, cryptoDomain.ErrContextMismatch
	}
	return plaintext, nil
}

func vaultContext(encCtx cryptoDomain.EncryptionContext) (string, error) {
	raw, err := encCtx.Serialize(cryptoDomain.SerializeSorted)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func vaultBytes(secret *vault.Secret, field string) ([]byte, error) {
	if secret == nil || secret.Data == nil {
		// transit answers an unknown key with an empty body
		return nil, fmt.Errorf("%w: transit key not found", cryptoDomain.ErrKeyServicePermissionDenied)
	}
	encoded, ok := secret.Data[field].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s in response", cryptoDomain.ErrKeyServiceUnavailable, field)
	}
	out, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s encoding", cryptoDomain.ErrKeyServiceUnavailable, field)
	}
	return out, nil
}

// mapVaultError translates Vault response codes into the key-service taxonomy.
func mapVaultError(err error) error {
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %w", cryptoDomain.ErrContextMismatch, err)
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServicePermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %w", cryptoDomain.ErrKeyServiceUnavailable, err)
}
