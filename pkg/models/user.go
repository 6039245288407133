// Package models defines the marketplace resources managed from the admin console.
// Field names follow the remote API's camelCase JSON.
package models

import "time"

// UserRole identifies which side of the marketplace an account belongs to.
type UserRole string

const (
	RoleClient       UserRole = "client"
	RoleProfessional UserRole = "professional"
	RoleDelivery     UserRole = "delivery"
	RoleCorporate    UserRole = "corporate"
)

// UserStatus represents the administrative state of an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserProfile holds the profile attached to every account.
type UserProfile struct {
	ID                 int        `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Avatar             string     `json:"avatar,omitempty"`
	BirthDate          *time.Time `json:"birthDate,omitempty"`
	Verified           bool       `json:"verified"`
	TotalJobs          int        `json:"totalJobs"`
	TotalExpense       float64    `json:"totalExpense"`
	Rate               string     `json:"rate,omitempty"`
	TotalJobsCompleted int        `json:"totalJobsCompleted"`
	TotalJobsCanceled  int        `json:"totalJobsCanceled"`
	TotalReview        int        `json:"totalReview"`
	TotalDisputes      int        `json:"totalDisputes"`
	BVNVerified        *bool      `json:"bvnVerified,omitempty"`
	Position           string     `json:"position,omitempty"`
	UserID             string     `json:"userId"`
}

// User is an account on any side of the marketplace. Clients, professionals,
// riders and corporates share this shape and differ only by Role.
type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Status    UserStatus  `json:"status"`
	Role      UserRole    `json:"role"`
	Agreed    bool        `json:"agreed"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Profile   UserProfile `json:"profile"`
}

// DisplayName returns the profile name, falling back to the email address.
func (u User) DisplayName() string {
	name := u.Profile.FirstName
	if u.Profile.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.Profile.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}
