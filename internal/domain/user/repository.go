package user

import "context"

type Repository interface {
	CreateUser(ctx context.Context, u *User) (*User, error)

	GetUserByID(ctx context.Context, userID int64) (*User, error)

	GetUserByUsername(ctx context.Context, username string) (*User, error)

	ListUsersByRole(ctx context.Context, role Role) ([]User, error)

	UpdateUserActivation(ctx context.Context, userID int64, active bool, status ProfileStatus) error
}
