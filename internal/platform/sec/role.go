// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// UserRole is the authorization level stored on an account and copied into
// the roles claim of its access tokens.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// rank orders the known roles. Unknown roles rank zero.
var rank = map[UserRole]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// AtLeast reports whether r grants everything target grants.
func (r UserRole) AtLeast(target UserRole) bool { return rank[r] >= rank[target] }

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool { return rank[r] > 0 }

// HighestRole picks the strongest known role out of a roles claim. It returns
// the empty role when none is known.
func HighestRole(roles []string) UserRole {
	var best UserRole
	for _, raw := range roles {
		if role := UserRole(raw); rank[role] > rank[best] {
			best = role
		}
	}
	return best
}
