// internal/common/auth/rbac.go
package auth

import "loan-management-service/internal/models"

// Permission names an action a role may perform.
type Permission string

const (
	PermApplicationsCreate  Permission = "applications.create"
	PermApplicationsView    Permission = "applications.view"
	PermApplicationsEdit    Permission = "applications.edit"
	PermApplicationsDelete  Permission = "applications.delete"
	PermApplicationsViewAll Permission = "applications.viewAll"
	PermApplicationsDecide  Permission = "applications.decide"
	PermMastersView         Permission = "masters.view"
	PermMastersEdit         Permission = "masters.edit"
	PermUsersView           Permission = "users.view"
	PermUsersEdit           Permission = "users.edit"
	PermSettingsView        Permission = "settings.view"
	PermSettingsEdit        Permission = "settings.edit"
	PermReportsView         Permission = "reports.view"
	PermReportsExport       Permission = "reports.export"
)

var rolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: {
		PermApplicationsCreate,
		PermApplicationsView,
		PermApplicationsEdit,
		PermApplicationsDelete,
		PermApplicationsViewAll,
		PermApplicationsDecide,
		PermMastersView,
		PermMastersEdit,
		PermUsersView,
		PermUsersEdit,
		PermSettingsView,
		PermSettingsEdit,
		PermReportsView,
		PermReportsExport,
	},
	models.RoleEmployee: {
		PermApplicationsCreate,
		PermApplicationsView,
		PermApplicationsEdit,
		PermApplicationsViewAll,
		PermMastersView,
		PermReportsView,
		PermReportsExport,
	},
	models.RoleViewer: {
		PermApplicationsView,
		PermReportsView,
	},
}

// HasPermission reports whether role is granted permission.
func HasPermission(role models.Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// RolePermissions returns the full permission set of a role.
func RolePermissions(role models.Role) []Permission {
	return rolePermissions[role]
}
