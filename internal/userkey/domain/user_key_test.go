package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserKey_KeyVersionString(t *testing.T) {
	key := &UserKey{UserID: 42, KeyVersion: InitialKeyVersion}
	assert.Equal(t, "1", key.KeyVersionString())

	key.KeyVersion = 12
	assert.Equal(t, "12", key.KeyVersionString())
}

func TestFormatUserID(t *testing.T) {
	assert.Equal(t, "42", FormatUserID(42))
	assert.Equal(t, "9007199254740993", FormatUserID(9007199254740993))
}
