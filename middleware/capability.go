// middleware/capability.go
package middleware

import "bgmi-scrims-system/models"

// CanManageMatch is the single authority check for host/admin actions on a
// match: starting it, reviewing its submissions, closing it. Admins manage
// every match; hosts manage only matches they created.
func CanManageMatch(role models.Role, userID string, match *models.Match) bool {
	if role == models.RoleAdmin {
		return true
	}
	if role == models.RoleHost {
		return match.CreatedByID == userID
	}
	return false
}

// CanCreateMatch reports whether the role may create matches at all.
func CanCreateMatch(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleHost
}
