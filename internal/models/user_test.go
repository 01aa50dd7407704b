package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserDisplayName(t *testing.T) {
	name := "hawk"
	assert.Equal(t, "@hawk", User{UserID: 1, Username: &name}.DisplayName())

	empty := ""
	assert.Equal(t, "ID 42", User{UserID: 42, Username: &empty}.DisplayName())
	assert.Equal(t, "ID 42", User{UserID: 42}.DisplayName())
}

func TestUserDaysLeft(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, User{}.DaysLeft(now))

	past := now.Add(-time.Hour)
	assert.Equal(t, 0, User{TrialExpiry: &past}.DaysLeft(now))

	exact := now.Add(3 * 24 * time.Hour)
	assert.Equal(t, 3, User{TrialExpiry: &exact}.DaysLeft(now))

	partial := now.Add(2*24*time.Hour + time.Minute)
	assert.Equal(t, 3, User{TrialExpiry: &partial}.DaysLeft(now))
}
