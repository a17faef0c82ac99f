package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"loanfriend/internal/domain/user"
	"loanfriend/internal/infrastructure/monitoring"
	"loanfriend/internal/pkg/apperrors"
)

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

const userColumns = `id, username, email, password_hash, role, active,
       phone_number, address_line1, address_line2, city, state, pin_code, profile_status,
       created_at, updated_at`

func scanUser(row loanRow) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active,
		&u.Profile.PhoneNumber, &u.Profile.AddressLine1, &u.Profile.AddressLine2,
		&u.Profile.City, &u.Profile.State, &u.Profile.PinCode, &u.Profile.Status,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	sql := `
        INSERT INTO users (username, email, password_hash, role, active,
                           phone_number, address_line1, address_line2, city, state, pin_code, profile_status,
                           created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
        RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, sql,
		u.Username, u.Email, u.PasswordHash, u.Role, u.Active,
		u.Profile.PhoneNumber, u.Profile.AddressLine1, u.Profile.AddressLine2,
		u.Profile.City, u.Profile.State, u.Profile.PinCode, u.Profile.Status,
	)
	created, err := scanUser(row)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert user", "username", u.Username, "error", err)
		return nil, translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "User created in DB", "user_id", created.ID, "username", created.Username)
	return created, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	status := "success"
	startTime := time.Now()

	u, err := scanUser(r.db.QueryRow(ctx, query, userID))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetUserByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get user by ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return u, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get user by username", "username", username, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return u, nil
}

func (r *UserRepository) ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY username`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query users", "role", role, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan user row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating user rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return users, nil
}

func (r *UserRepository) UpdateUserActivation(ctx context.Context, userID int64, active bool, status user.ProfileStatus) error {
	sql := `UPDATE users SET active = $1, profile_status = $2, updated_at = NOW() WHERE id = $3`

	cmdTag, err := r.db.Exec(ctx, sql, active, status, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update user activation", "user_id", userID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.WarnContext(ctx, "User activation update matched no rows", "user_id", userID)
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "User activation updated", "user_id", userID, "active", active, "profile_status", status)
	return nil
}
