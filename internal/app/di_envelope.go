package app

import (
	"fmt"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	envelopeHTTP "github.com/nemory/userkeys/internal/envelope/http"
	envelopeUseCase "github.com/nemory/userkeys/internal/envelope/usecase"
)

// EnvelopeUseCase returns the envelope encryption use case, decorated with metrics.
func (c *Container) EnvelopeUseCase() (envelopeUseCase.EnvelopeUseCase, error) {
	var err error
	c.envelopeUseCaseInit.Do(func() {
		c.envelopeUseCase, err = c.initEnvelopeUseCase()
		if err != nil {
			c.setInitError("envelopeUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("envelopeUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.envelopeUseCase, nil
}

// EnvelopeHandler returns a new HTTP handler for envelope operations.
func (c *Container) EnvelopeHandler() (*envelopeHTTP.EnvelopeHandler, error) {
	useCase, err := c.EnvelopeUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope use case for handler: %w", err)
	}
	return envelopeHTTP.NewEnvelopeHandler(useCase, c.Logger()), nil
}

func (c *Container) initEnvelopeUseCase() (envelopeUseCase.EnvelopeUseCase, error) {
	userKeys, err := c.UserKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key use case for envelope use case: %w", err)
	}

	kms, err := c.KMSClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms client for envelope use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for envelope use case: %w", err)
	}

	alg := cryptoDomain.Algorithm(c.config.EnvelopeAlgorithm)
	if !alg.IsSupported() {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrUnsupportedAlgorithm, c.config.EnvelopeAlgorithm)
	}

	useCase := envelopeUseCase.NewEnvelopeUseCase(userKeys, kms, c.AEADManager(), envelopeUseCase.Config{
		AppID:       c.config.AppID,
		MasterKeyID: c.config.KMSKeyID,
		Algorithm:   alg,
	}, c.Logger())

	return envelopeUseCase.NewEnvelopeUseCaseWithMetrics(useCase, businessMetrics), nil
}
