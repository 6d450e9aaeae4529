// Package authz defines the portal's closed set of roles and the static
// permission table consulted by handlers.
package authz

import (
	"errors"
	"sort"
	"strings"
)

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleOperator  Role = "operator"
	RoleAnalyst   Role = "analyst"
	RoleAdmin     Role = "admin"
	RoleExecutive Role = "executive"
)

type Permission string

const (
	PermBinsView          Permission = "bins:view"
	PermBinsViewAll       Permission = "bins:view_all"
	PermBinsOperate       Permission = "bins:operate"
	PermBinsManage        Permission = "bins:manage"
	PermUsersView         Permission = "users:view"
	PermUsersManage       Permission = "users:manage"
	PermAnalyticsView     Permission = "analytics:view"
	PermHQView            Permission = "hq:view"
	PermSubmissionsView   Permission = "submissions:view"
	PermSubmissionsManage Permission = "submissions:manage"
)

// Home identifies the dashboard a role lands on after login.
type Home string

const (
	HomeUser      Home = "user"
	HomeDashboard Home = "dashboard"
	HomeHQ        Home = "hq"
)

var ErrUnknownRole = errors.New("unknown role")

var permissions = map[Role]map[Permission]struct{}{
	RoleCustomer: set(PermBinsView),
	RoleOperator: set(
		PermBinsView, PermBinsViewAll, PermBinsOperate,
		PermAnalyticsView,
	),
	RoleAnalyst: set(
		PermBinsView, PermBinsViewAll,
		PermAnalyticsView, PermUsersView, PermSubmissionsView,
	),
	RoleAdmin: set(
		PermBinsView, PermBinsViewAll, PermBinsOperate, PermBinsManage,
		PermUsersView, PermUsersManage,
		PermAnalyticsView,
		PermSubmissionsView, PermSubmissionsManage,
	),
	RoleExecutive: set(
		PermBinsView, PermBinsViewAll,
		PermAnalyticsView, PermHQView,
		PermUsersView, PermSubmissionsView,
	),
}

var homes = map[Role]Home{
	RoleCustomer:  HomeUser,
	RoleOperator:  HomeDashboard,
	RoleAnalyst:   HomeDashboard,
	RoleAdmin:     HomeDashboard,
	RoleExecutive: HomeHQ,
}

func set(perms ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return m
}

// Roles lists every role in privilege order.
func Roles() []Role {
	return []Role{RoleCustomer, RoleOperator, RoleAnalyst, RoleAdmin, RoleExecutive}
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := permissions[r]
	return ok
}

// Can reports whether the role grants p. Unknown roles grant nothing.
func (r Role) Can(p Permission) bool {
	_, ok := permissions[r][p]
	return ok
}

// Permissions returns the role's permissions sorted by name.
func (r Role) Permissions() []Permission {
	perms := make([]Permission, 0, len(permissions[r]))
	for p := range permissions[r] {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Home returns the dashboard the role lands on.
func (r Role) Home() Home {
	if h, ok := homes[r]; ok {
		return h
	}
	return HomeUser
}

func (r Role) String() string { return string(r) }
