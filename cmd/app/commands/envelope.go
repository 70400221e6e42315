package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
	envelopeUseCase "github.com/nemory/userkeys/internal/envelope/usecase"
)

// maxInputSize caps what encrypt and decrypt read from the input stream.
const maxInputSize = 1 << 20

// RunEncrypt reads plaintext from the input stream, seals it for the user under
// purpose and writes the envelope JSON.
func RunEncrypt(
	ctx context.Context,
	useCase envelopeUseCase.EnvelopeUseCase,
	logger *slog.Logger,
	stdio IOTuple,
	rawUserID string,
	purpose string,
) error {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(purpose) == "" {
		return fmt.Errorf("purpose is required")
	}

	plaintext, err := readInput(stdio.Reader)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(plaintext)

	envelope, err := useCase.EncryptForUser(ctx, userID, purpose, plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}

	data, err := envelope.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	logger.Info("content encrypted",
		slog.Int64("user_id", userID),
		slog.String("purpose", purpose),
		slog.String("key_version", envelope.KeyVersion()),
	)

	_, err = fmt.Fprintln(stdio.Writer, string(data))
	return err
}

// RunDecrypt reads envelope JSON from the input stream and writes the plaintext
// as the given user.
func RunDecrypt(
	ctx context.Context,
	useCase envelopeUseCase.EnvelopeUseCase,
	logger *slog.Logger,
	stdio IOTuple,
	rawUserID string,
) error {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return err
	}

	data, err := readInput(stdio.Reader)
	if err != nil {
		return err
	}

	envelope, err := cryptoDomain.ParseEnvelope(data)
	if err != nil {
		return fmt.Errorf("failed to parse envelope: %w", err)
	}

	plaintext, err := useCase.DecryptForUser(ctx, userID, envelope)
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)

	logger.Info("content decrypted",
		slog.Int64("user_id", userID),
		slog.String("key_version", envelope.KeyVersion()),
	)

	_, err = stdio.Writer.Write(plaintext)
	return err
}

func readInput(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds %d bytes", maxInputSize)
	}
	return data, nil
}
