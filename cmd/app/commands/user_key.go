package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
	userkeyDTO "github.com/nemory/userkeys/internal/userkey/http/dto"
	userkeyUseCase "github.com/nemory/userkeys/internal/userkey/usecase"
)

// RunShowUserKey prints the key metadata of a user without provisioning one.
// The wrapped DEK is never printed.
func RunShowUserKey(
	ctx context.Context,
	useCase userkeyUseCase.UserKeyUseCase,
	logger *slog.Logger,
	w io.Writer,
	rawUserID string,
	format string,
) error {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return err
	}

	key, err := useCase.GetUserKey(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user key: %w", err)
	}

	logger.Debug("user key loaded", slog.Int64("user_id", userID), slog.Int("key_version", key.KeyVersion))
	return outputUserKey(w, key, format, "User key")
}

// RunRotateUserKey replaces a user's DEK with a fresh one under the next key version.
// Existing envelopes remain readable.
func RunRotateUserKey(
	ctx context.Context,
	useCase userkeyUseCase.UserKeyUseCase,
	logger *slog.Logger,
	w io.Writer,
	rawUserID string,
	format string,
) error {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return err
	}

	logger.Info("rotating user key", slog.Int64("user_id", userID))

	key, err := useCase.RotateUserKey(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to rotate user key: %w", err)
	}

	logger.Info("user key rotated successfully",
		slog.Int64("user_id", userID),
		slog.Int("key_version", key.KeyVersion),
	)
	return outputUserKey(w, key, format, "Rotated user key")
}

func outputUserKey(w io.Writer, key *userkeyDomain.UserKey, format, title string) error {
	if format == "json" {
		return writeJSON(w, userkeyDTO.MapUserKeyToResponse(key))
	}

	_, err := fmt.Fprintf(w, "%s\n  User ID:     %d\n  Key version: %d\n  Created at:  %s\n  Updated at:  %s\n",
		title,
		key.UserID,
		key.KeyVersion,
		key.CreatedAt.Format(time.RFC3339),
		key.UpdatedAt.Format(time.RFC3339),
	)
	return err
}
