package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserIDValidate(t *testing.T) {
	assert.NoError(t, UserID("alice").Validate())
	assert.ErrorIs(t, UserID("").Validate(), ErrUserIDEmpty)
	long := UserID(strings.Repeat("x", MaxUserIDLen+1))
	assert.ErrorIs(t, long.Validate(), ErrUserIDTooLong)
}

func TestRoomIDValidate(t *testing.T) {
	assert.NoError(t, RoomID("r1").Validate())
	assert.ErrorIs(t, RoomID("").Validate(), ErrRoomIDEmpty)
	long := RoomID(strings.Repeat("x", MaxRoomIDLen+1))
	assert.ErrorIs(t, long.Validate(), ErrRoomIDTooLong)
}
