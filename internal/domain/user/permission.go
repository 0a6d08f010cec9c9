package user

// Capability names one flag of the Permissions record.
type Capability string

const (
	CapabilityManageOrganisation Capability = "organisation.manage"
	CapabilityManageMembers      Capability = "members.manage"
	CapabilityInviteMembers      Capability = "members.invite"
	CapabilityManageProjects     Capability = "projects.manage"
	CapabilityManageTeams        Capability = "teams.manage"
	CapabilityEditBudget         Capability = "budget.edit"
	CapabilityManageSprints      Capability = "sprints.manage"
	CapabilityViewReports        Capability = "reports.view"
	CapabilityViewAuditLog       Capability = "audit.view"
	CapabilityCreateTasks        Capability = "tasks.create"
)

// Permissions is the capability record derived from a role.
type Permissions struct {
	CanManageOrganisation bool `json:"canManageOrganisation"`
	CanManageMembers      bool `json:"canManageMembers"`
	CanInviteMembers      bool `json:"canInviteMembers"`
	CanManageProjects     bool `json:"canManageProjects"`
	CanManageTeams        bool `json:"canManageTeams"`
	CanEditBudget         bool `json:"canEditBudget"`
	CanManageSprints      bool `json:"canManageSprints"`
	CanViewReports        bool `json:"canViewReports"`
	CanViewAuditLog       bool `json:"canViewAuditLog"`
	CanCreateTasks        bool `json:"canCreateTasks"`
}

var rolePermissions = map[Role]Permissions{
	RoleAdmin: {
		CanManageOrganisation: true,
		CanManageMembers:      true,
		CanInviteMembers:      true,
		CanManageProjects:     true,
		CanManageTeams:        true,
		CanEditBudget:         true,
		CanManageSprints:      true,
		CanViewReports:        true,
		CanViewAuditLog:       true,
		CanCreateTasks:        true,
	},
	RoleManager: {
		CanInviteMembers:  true,
		CanManageProjects: true,
		CanManageTeams:    true,
		CanEditBudget:     true,
		CanManageSprints:  true,
		CanViewReports:    true,
		CanCreateTasks:    true,
	},
	RoleEmployee: {
		CanCreateTasks: true,
	},
}

// GetRolePermissions returns the fixed permission record for role.
// Unknown roles get the zero record.
func GetRolePermissions(role Role) Permissions {
	return rolePermissions[role]
}

// Has reports whether the record grants capability c.
func (p Permissions) Has(c Capability) bool {
	switch c {
	case CapabilityManageOrganisation:
		return p.CanManageOrganisation
	case CapabilityManageMembers:
		return p.CanManageMembers
	case CapabilityInviteMembers:
		return p.CanInviteMembers
	case CapabilityManageProjects:
		return p.CanManageProjects
	case CapabilityManageTeams:
		return p.CanManageTeams
	case CapabilityEditBudget:
		return p.CanEditBudget
	case CapabilityManageSprints:
		return p.CanManageSprints
	case CapabilityViewReports:
		return p.CanViewReports
	case CapabilityViewAuditLog:
		return p.CanViewAuditLog
	case CapabilityCreateTasks:
		return p.CanCreateTasks
	}
	return false
}

// RolesWith derives the role allow-list for capability c from the permission table.
func RolesWith(c Capability) []Role {
	var roles []Role
	for _, role := range AllRoles() {
		if GetRolePermissions(role).Has(c) {
			roles = append(roles, role)
		}
	}
	return roles
}

// AllowRoles returns ErrForbidden unless role is in allowed.
func AllowRoles(role Role, allowed ...Role) error {
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return ErrForbidden
}

// Authorize checks capability c for role through the derived allow-list.
func Authorize(role Role, c Capability) error {
	return AllowRoles(role, RolesWith(c)...)
}
