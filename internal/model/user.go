package model

import "time"

// Role names understood by the backend.
const (
	RoleMaster  = "Master"
	RoleSubUser = "Sub-User"
)

// Roles lists every assignable role.
var Roles = []string{RoleSubUser, RoleMaster}

// User is a staff account.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	// Password is only sent on create or when changing it.
	Password string `json:"password,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// IsMaster reports whether the user holds the Master role.
func (u User) IsMaster() bool {
	return u.Role == RoleMaster
}
