package auth

// Role is the fixed set of user roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Permission names follow the action:resource convention.
type Permission string

const (
	PermCreateWidget Permission = "create:widget"
	PermReadWidget   Permission = "read:widget"
	PermUpdateWidget Permission = "update:widget"
	PermDeleteWidget Permission = "delete:widget"

	PermCreateUser Permission = "create:user"
	PermReadUser   Permission = "read:user"
	PermUpdateUser Permission = "update:user"
	PermDeleteUser Permission = "delete:user"

	PermManageRoles Permission = "manage:roles"
	PermViewMetrics Permission = "view:metrics"
)

func (p Permission) Valid() bool {
	switch p {
	case PermCreateWidget, PermReadWidget, PermUpdateWidget, PermDeleteWidget,
		PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser,
		PermManageRoles, PermViewMetrics:
		return true
	}
	return false
}

// RolePermissions is the static role baseline. A user's effective permission
// set is this baseline unioned with their stored ad-hoc grants; the two sets
// are kept separate so a role change can never drop an explicit grant.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermCreateWidget,
		PermReadWidget,
		PermUpdateWidget,
		PermDeleteWidget,
		PermCreateUser,
		PermReadUser,
		PermUpdateUser,
		PermDeleteUser,
		PermManageRoles,
		PermViewMetrics,
	},
	RoleManager: {
		PermCreateWidget,
		PermReadWidget,
		PermUpdateWidget,
		PermDeleteWidget,
		PermReadUser,
		PermViewMetrics,
	},
	RoleUser: {
		PermReadWidget,
	},
}

// PermissionsForRole returns the baseline permissions for a role, empty for
// an unknown role.
func PermissionsForRole(role Role) []Permission {
	return RolePermissions[role]
}

// EffectivePermissions returns the union of the user's role baseline and
// ad-hoc grants.
func (u *User) EffectivePermissions() []Permission {
	seen := make(map[Permission]struct{})
	var out []Permission
	for _, p := range PermissionsForRole(u.Role) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, p := range u.Permissions {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// HasPermission reports whether the permission is in the user's effective set.
func (u *User) HasPermission(required Permission) bool {
	for _, p := range PermissionsForRole(u.Role) {
		if p == required {
			return true
		}
	}
	for _, p := range u.Permissions {
		if p == required {
			return true
		}
	}
	return false
}

func (u *User) HasGrant(permission Permission) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
