package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User is a back-office account. PasswordHash is persisted with the document
// but never returned by the API; see UserView.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UnmarshalJSON treats a missing role as admin. Accounts created before roles
// existed were all administrators.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Role == "" {
		v.Role = RoleAdmin
	}
	*u = User(v)
	return nil
}

// UserView is the API representation of a User.
type UserView struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) View() UserView {
	return UserView{Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}
