// Package dto provides data transfer objects for user key HTTP responses.
package dto

import (
	"time"

	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// UserKeyResponse exposes key metadata only. The wrapped DEK is never returned.
type UserKeyResponse struct {
	UserID     int64     `json:"user_id"`
	KeyVersion int       `json:"key_version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MapUserKeyToResponse converts a domain user key to an API response.
func MapUserKeyToResponse(key *userkeyDomain.UserKey) UserKeyResponse {
	return UserKeyResponse{
		UserID:     key.UserID,
		KeyVersion: key.KeyVersion,
		CreatedAt:  key.CreatedAt,
		UpdatedAt:  key.UpdatedAt,
	}
}
