// Package authz is the staff permission table.  Every mutating operation
// exposed over HTTP is checked here before it runs.
package authz

import "github.com/iliyamo/playzone-reservation/internal/model"

// Resources.
const (
	Reservations  = "reservations"
	Announcements = "announcements"
	Settings      = "settings"
	Catalog       = "catalog"
)

// Actions.
const (
	Read   = "read"
	Create = "create"
	Update = "update"
	Cancel = "cancel"
	Play   = "play"
)

type grant struct{ resource, action string }

var staffGrants = map[grant]bool{
	{Reservations, Read}:   true,
	{Reservations, Create}: true,
	{Reservations, Update}: true,
	{Reservations, Cancel}: true,
	{Announcements, Play}:  true,
	{Settings, Read}:       true,
	{Catalog, Read}:        true,
}

// Can reports whether a subject with role may perform action on resource.
// ADMIN may do everything; STAFF runs the front desk; any other role is
// denied.
func Can(role, resource, action string) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleStaff:
		return staffGrants[grant{resource, action}]
	}
	return false
}
