package models

import "time"

// UserRole determines what a user may do in the report lifecycle.
type UserRole string

const (
	RoleCitizen    UserRole = "citizen"
	RoleNGO        UserRole = "ngo"
	RoleGovernment UserRole = "government"
	RoleModerator  UserRole = "moderator"
	RoleAdmin      UserRole = "admin"
)

// IsReviewer reports whether the role may take review decisions.
func (r UserRole) IsReviewer() bool {
	switch r {
	case RoleNGO, RoleGovernment, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CitizenInfo holds the extra profile fields of a citizen account.
type CitizenInfo struct {
	Occupation string `json:"occupation,omitempty"`
	Community  string `json:"community,omitempty"`
}

// NGOInfo holds the extra profile fields of an NGO account.
type NGOInfo struct {
	Organization string `json:"organization"`
	Registration string `json:"registration,omitempty"`
	FocusArea    string `json:"focus_area,omitempty"`
}

// GovernmentInfo holds the extra profile fields of a government account.
type GovernmentInfo struct {
	Department  string `json:"department"`
	Designation string `json:"designation,omitempty"`
	Office      string `json:"office,omitempty"`
}

// RoleInfo is a tagged variant: exactly the field matching the user's role
// is populated, the rest stay nil.
type RoleInfo struct {
	Citizen    *CitizenInfo    `json:"citizen,omitempty"`
	NGO        *NGOInfo        `json:"ngo,omitempty"`
	Government *GovernmentInfo `json:"government,omitempty"`
}

// User carries the gamification-relevant slice of an account.
//
// Points is defined to equal the sum of the user's point log entries; Level
// is recomputed from Points and never authoritative on its own.
type User struct {
	ID     uint64   `db:"id"`
	Name   string   `db:"name"`
	Phone  string   `db:"phone"`
	Email  string   `db:"email"`
	Role   UserRole `db:"role"`
	Region string   `db:"region"`

	Points int64 `db:"points"`
	Level  int32 `db:"level"`

	RoleInfo RoleInfo `db:"role_info"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
