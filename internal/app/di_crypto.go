package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nemory/userkeys/internal/config"
	cryptoService "github.com/nemory/userkeys/internal/crypto/service"
)

// KMSClient returns the key service client selected by KMS_PROVIDER.
func (c *Container) KMSClient() (cryptoService.KMSClient, error) {
	var err error
	c.kmsClientInit.Do(func() {
		c.kmsClient, err = c.initKMSClient()
		if err != nil {
			c.setInitError("kmsClient", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("kmsClient"); storedErr != nil {
		return nil, storedErr
	}
	return c.kmsClient, nil
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// initKMSClient builds the key service client for the configured provider.
func (c *Container) initKMSClient() (cryptoService.KMSClient, error) {
	switch c.config.KMSProvider {
	case config.KMSProviderAWS:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := cryptoService.NewAWSKMSClientFromConfig(ctx, c.config.KMSAWSRegion, c.config.KMSAWSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create aws kms client: %w", err)
		}
		return client, nil
	case config.KMSProviderVault:
		client, err := cryptoService.NewVaultKMSClientFromConfig(
			c.config.VaultAddr,
			c.config.VaultToken,
			c.config.KMSVaultMount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create vault kms client: %w", err)
		}
		return client, nil
	case config.KMSProviderGoCloud, "":
		return cryptoService.NewKeeperKMSClient(cryptoService.NewKMSService()), nil
	default:
		return nil, fmt.Errorf("unsupported kms provider: %s", c.config.KMSProvider)
	}
}
