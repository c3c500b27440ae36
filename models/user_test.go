package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRolePredicates(t *testing.T) {
	assert.True(t, RoleAdmin.CanReview())
	assert.True(t, RoleRSSI.CanReview())
	assert.False(t, RoleSSI.CanReview())

	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleRSSI.IsAdmin())
	assert.False(t, RoleSSI.IsAdmin())
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "RSSI", "SSI"} {
		_, ok := ParseRole(valid)
		assert.True(t, ok, valid)
	}
	_, ok := ParseRole("admin")
	assert.False(t, ok, "role parsing is strict")
	_, ok = ParseRole("SUPERUSER")
	assert.False(t, ok)
}

func TestResetRequestActiveWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	pending := &ResetRequest{Status: ResetPending}
	assert.True(t, pending.Active(now))
	assert.False(t, pending.Redeemable(now))

	approved := &ResetRequest{Status: ResetApproved, ExpiresAt: &later}
	assert.True(t, approved.Active(now))
	assert.True(t, approved.Redeemable(now))

	// The bound is exclusive: at the expiry instant the request is inert.
	assert.False(t, approved.Active(later))
	assert.False(t, approved.Redeemable(later))

	for _, terminal := range []ResetStatus{ResetRejected, ResetCompleted} {
		req := &ResetRequest{Status: terminal, ExpiresAt: &later}
		assert.False(t, req.Active(now), string(terminal))
		assert.False(t, req.Redeemable(now), string(terminal))
	}
}
