package role

import (
	"net/http"
	"strings"
)

// Role identifies the kind of actor requesting a change.
type Role struct {
	Name string
}

func (r Role) Code() string {
	return r.Name
}

func (r Role) Label() string {
	if r.Name == "" {
		return ""
	}
	return strings.ToUpper(r.Name[:1]) + r.Name[1:]
}

func (r Role) IsZero() bool {
	return r.Name == ""
}

type Enum struct {
	Customer Role
	Captain  Role
	Kitchen  Role
	Admin    Role
}

var Roles = Enum{
	Customer: Role{Name: "customer"},
	Captain:  Role{Name: "captain"},
	Kitchen:  Role{Name: "kitchen"},
	Admin:    Role{Name: "admin"},
}

var All = []Role{
	Roles.Customer,
	Roles.Captain,
	Roles.Kitchen,
	Roles.Admin,
}

// ByName returns the role for a given name, or nil if not found.
func ByName(name string) *Role {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range All {
		if r.Name == name {
			return &r
		}
	}
	return nil
}

// Header carries the acting role on mutating requests.
const Header = "X-Actor-Role"

// FromRequest reads the acting role from the request header.
func FromRequest(r *http.Request) (Role, bool) {
	found := ByName(r.Header.Get(Header))
	if found == nil {
		return Role{}, false
	}
	return *found, true
}
