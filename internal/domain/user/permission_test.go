package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetRolePermissions(t *testing.T) {
	admin := GetRolePermissions(RoleAdmin)
	assert.True(t, admin.CanManageOrganisation)
	assert.True(t, admin.CanManageMembers)
	assert.True(t, admin.CanViewAuditLog)

	manager := GetRolePermissions(RoleManager)
	assert.True(t, manager.CanInviteMembers)
	assert.True(t, manager.CanEditBudget)
	assert.False(t, manager.CanManageMembers)
	assert.False(t, manager.CanManageOrganisation)

	employee := GetRolePermissions(RoleEmployee)
	assert.True(t, employee.CanCreateTasks)
	assert.False(t, employee.CanInviteMembers)

	assert.Equal(t, Permissions{}, GetRolePermissions(Role("guest")))
}

func TestRolesWith(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin}, RolesWith(CapabilityManageMembers))
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, RolesWith(CapabilityInviteMembers))
	assert.Equal(t, []Role{RoleAdmin, RoleManager, RoleEmployee}, RolesWith(CapabilityCreateTasks))
	assert.Empty(t, RolesWith(Capability("unknown")))
}

func TestAllowRoles(t *testing.T) {
	assert.NoError(t, AllowRoles(RoleManager, RoleAdmin, RoleManager))
	assert.ErrorIs(t, AllowRoles(RoleEmployee, RoleAdmin, RoleManager), ErrForbidden)
	assert.ErrorIs(t, AllowRoles(RoleAdmin), ErrForbidden)
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		role Role
		cap  Capability
		ok   bool
	}{
		{RoleAdmin, CapabilityManageOrganisation, true},
		{RoleManager, CapabilityManageOrganisation, false},
		{RoleManager, CapabilityInviteMembers, true},
		{RoleEmployee, CapabilityInviteMembers, false},
		{RoleEmployee, CapabilityCreateTasks, true},
	}
	for _, c := range cases {
		err := Authorize(c.role, c.cap)
		if c.ok {
			assert.NoError(t, err, "%s/%s", c.role, c.cap)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s/%s", c.role, c.cap)
		}
	}
}

func TestAssociation_IsBannedAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.False(t, (&Association{}).IsBannedAt(now))
	assert.True(t, (&Association{Banned: true}).IsBannedAt(now))
	assert.True(t, (&Association{Banned: true, BanExpiresAt: &future}).IsBannedAt(now))
	assert.False(t, (&Association{Banned: true, BanExpiresAt: &past}).IsBannedAt(now))
}
