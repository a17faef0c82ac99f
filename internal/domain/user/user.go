package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"loanfriend/internal/pkg/apperrors"
)

// Role is a closed enumeration; access decisions go through Can rather
// than string comparisons at call sites.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type Capability string

const (
	CapManageUsers  Capability = "manage_users"
	CapDecideLoans  Capability = "decide_loans"
	CapViewAllLoans Capability = "view_all_loans"
	CapApplyForLoan Capability = "apply_for_loan"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageUsers:  true,
		CapDecideLoans:  true,
		CapViewAllLoans: true,
	},
	RoleUser: {
		CapApplyForLoan: true,
	},
}

func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type ProfileStatus string

const (
	ProfilePending   ProfileStatus = "PENDING"
	ProfileApproved  ProfileStatus = "APPROVED"
	ProfileSuspended ProfileStatus = "SUSPENDED"
)

type Profile struct {
	PhoneNumber  string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PinCode      string
	Status       ProfileStatus
}

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser builds a self-registered account: inactive until an admin
// approves it, always with the USER role regardless of what was asked for.
func NewUser(username, email, password string, profile Profile) (*User, error) {
	if username == "" {
		return nil, apperrors.NewValidationError("username", "username is required")
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password", "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	profile.Status = ProfilePending
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleUser,
		Active:       false,
		Profile:      profile,
	}, nil
}

// CheckPassword compares a candidate password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
