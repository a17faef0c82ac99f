package dto

import (
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"loanfriend/internal/domain/user"
)

type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PhoneNumber  string `json:"phoneNumber"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PinCode      string `json:"pinCode"`
}

func (r *RegisterRequest) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

func (r *RegisterRequest) Profile() user.Profile {
	return user.Profile{
		PhoneNumber:  r.PhoneNumber,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PinCode:      r.PinCode,
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type UserResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Active        bool      `json:"active"`
	ProfileStatus string    `json:"profileStatus"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	AddressLine1  string    `json:"addressLine1,omitempty"`
	AddressLine2  string    `json:"addressLine2,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	PinCode       string    `json:"pinCode,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:            strconv.FormatInt(u.ID, 10),
		Username:      u.Username,
		Email:         u.Email,
		Role:          string(u.Role),
		Active:        u.Active,
		ProfileStatus: string(u.Profile.Status),
		PhoneNumber:   u.Profile.PhoneNumber,
		AddressLine1:  u.Profile.AddressLine1,
		AddressLine2:  u.Profile.AddressLine2,
		City:          u.Profile.City,
		State:         u.Profile.State,
		PinCode:       u.Profile.PinCode,
		CreatedAt:     u.CreatedAt,
	}
}

func NewUserListResponse(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = NewUserResponse(&users[i])
	}
	return out
}
