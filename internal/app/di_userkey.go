package app

import (
	"fmt"

	userkeyHTTP "github.com/nemory/userkeys/internal/userkey/http"
	userkeyRepository "github.com/nemory/userkeys/internal/userkey/repository"
	userkeyUseCase "github.com/nemory/userkeys/internal/userkey/usecase"
)

// UserKeyRepository returns the user key repository for the configured database driver.
func (c *Container) UserKeyRepository() (userkeyUseCase.UserKeyRepository, error) {
	var err error
	c.userKeyRepositoryInit.Do(func() {
		c.userKeyRepository, err = c.initUserKeyRepository()
		if err != nil {
			c.setInitError("userKeyRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("userKeyRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.userKeyRepository, nil
}

// UserKeyUseCase returns the user key use case, decorated with metrics.
func (c *Container) UserKeyUseCase() (userkeyUseCase.UserKeyUseCase, error) {
	var err error
	c.userKeyUseCaseInit.Do(func() {
		c.userKeyUseCase, err = c.initUserKeyUseCase()
		if err != nil {
			c.setInitError("userKeyUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("userKeyUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.userKeyUseCase, nil
}

// UserKeyHandler returns a new HTTP handler for user key operations.
func (c *Container) UserKeyHandler() (*userkeyHTTP.UserKeyHandler, error) {
	useCase, err := c.UserKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key use case for handler: %w", err)
	}
	return userkeyHTTP.NewUserKeyHandler(useCase, c.Logger()), nil
}

func (c *Container) initUserKeyRepository() (userkeyUseCase.UserKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return userkeyRepository.NewPostgreSQLUserKeyRepository(db), nil
	case "mysql":
		return userkeyRepository.NewMySQLUserKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initUserKeyUseCase() (userkeyUseCase.UserKeyUseCase, error) {
	repo, err := c.UserKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key repository: %w", err)
	}

	kms, err := c.KMSClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms client for user key use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for user key use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for user key use case: %w", err)
	}

	useCase := userkeyUseCase.NewUserKeyUseCase(txManager, repo, kms, userkeyUseCase.Config{
		AppID:       c.config.AppID,
		MasterKeyID: c.config.KMSKeyID,
	}, c.Logger())

	return userkeyUseCase.NewUserKeyUseCaseWithMetrics(useCase, businessMetrics), nil
}
