package domain

import "strings"

type Role string

const (
	RoleGov  Role = "gov"
	RoleSite Role = "site"
)

// Principal is an authenticated dashboard user. Site is set only for RoleSite.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Site     string `json:"site,omitempty"`
}

func (p Principal) CanSee(site string) bool {
	return p.Role == RoleGov || p.Site == site
}

func (p Principal) DisplayName() string {
	if p.Role == RoleGov {
		return "Government Admin"
	}
	if p.Site == "" {
		return "Site User"
	}
	return strings.Replace(p.Site, "_", " ", 1)
}
