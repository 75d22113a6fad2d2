package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/playzone-reservation/internal/model"
)

func TestCan(t *testing.T) {
	cases := []struct {
		role, resource, action string
		want                   bool
	}{
		{model.RoleAdmin, Settings, Update, true},
		{model.RoleAdmin, Catalog, Create, true},
		{model.RoleStaff, Reservations, Update, true},
		{model.RoleStaff, Reservations, Cancel, true},
		{model.RoleStaff, Announcements, Play, true},
		{model.RoleStaff, Settings, Read, true},
		{model.RoleStaff, Settings, Update, false},
		{model.RoleStaff, Catalog, Create, false},
		{"", Reservations, Read, false},
		{"CUSTOMER", Reservations, Read, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Can(tc.role, tc.resource, tc.action), "%s %s:%s", tc.role, tc.resource, tc.action)
	}
}
