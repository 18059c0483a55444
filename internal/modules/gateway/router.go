package gateway

import "github.com/gradflow/core/internal/models"

// Group naming families. Membership is transient: a group exists only while
// at least one connection is joined to it.
const (
	GroupAll = "notifications_all"

	groupRolePrefix = "notifications_role_"
	groupUserPrefix = "notifications_"

	groupProjectPrefix = "project_"
	groupCollabPrefix  = "collab_"
	GroupSystemHealth  = "system_health"
)

// RoleGroup names the fan-out group for a role broadcast.
func RoleGroup(role string) string {
	return groupRolePrefix + role
}

// UserGroup names the fan-out group for a direct-user notification.
func UserGroup(userID string) string {
	return groupUserPrefix + userID
}

// ProjectGroup names the fan-out group for a project room.
func ProjectGroup(projectID string) string {
	return groupProjectPrefix + projectID
}

// CollabGroup names the fan-out group for a collaboration room.
func CollabGroup(roomName string) string {
	return groupCollabPrefix + roomName
}

// GroupsForPrincipal resolves the groups a connecting principal joins on
// accept. Every connection joins the global group; concrete principals also
// join their role and direct-user groups. Pure and deterministic.
func GroupsForPrincipal(p Principal) []string {
	groups := []string{GroupAll}
	if !p.IsAnonymous() {
		groups = append(groups, RoleGroup(string(p.Role)), UserGroup(p.UserID))
	}
	return groups
}

// GroupForNotification resolves the single fan-out group addressed by a
// notification's recipient descriptor. Pure and deterministic.
func GroupForNotification(n *models.NotificationModel) string {
	switch n.RecipientType {
	case models.RecipientAll:
		return GroupAll
	case models.RecipientRole:
		return RoleGroup(n.RecipientID)
	default:
		return UserGroup(n.RecipientID)
	}
}
