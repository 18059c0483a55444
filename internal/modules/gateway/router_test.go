package gateway

import (
	"testing"

	"github.com/gradflow/core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGroupsForPrincipal(t *testing.T) {
	t.Run("concrete principal joins global, role and user groups", func(t *testing.T) {
		p := Principal{UserID: "42", Role: models.RoleAdvisor}
		groups := GroupsForPrincipal(p)

		assert.Equal(t, []string{
			"notifications_all",
			"notifications_role_Advisor",
			"notifications_42",
		}, groups)
	})

	t.Run("anonymous joins only the global group", func(t *testing.T) {
		assert.Equal(t, []string{"notifications_all"}, GroupsForPrincipal(Anonymous))
	})

	t.Run("deterministic", func(t *testing.T) {
		p := Principal{UserID: "7", Role: models.RoleStudent}
		assert.Equal(t, GroupsForPrincipal(p), GroupsForPrincipal(p))
	})
}

func TestGroupForNotification(t *testing.T) {
	cases := []struct {
		name string
		n    models.NotificationModel
		want string
	}{
		{
			name: "broadcast",
			n:    models.NotificationModel{RecipientType: models.RecipientAll},
			want: "notifications_all",
		},
		{
			name: "role",
			n:    models.NotificationModel{RecipientType: models.RecipientRole, RecipientID: "Student"},
			want: "notifications_role_Student",
		},
		{
			name: "user",
			n:    models.NotificationModel{RecipientType: models.RecipientUser, RecipientID: "abc"},
			want: "notifications_abc",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GroupForNotification(&tc.n))
		})
	}
}

func TestGroupNaming(t *testing.T) {
	assert.Equal(t, "project_p1", ProjectGroup("p1"))
	assert.Equal(t, "collab_roomA", CollabGroup("roomA"))
	assert.Equal(t, "notifications_role_Admin", RoleGroup("Admin"))
	assert.Equal(t, "notifications_u1", UserGroup("u1"))
}
