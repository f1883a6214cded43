package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type userRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewUserRepository(db SQLExecutor, logger *slog.Logger) domain.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, password, phone, campus_card, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Phone,
		user.CampusCard,
		user.CreatedAt,
	)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			r.logger.Warn("Duplicate user registration attempt", "username", user.Username, "error", mapped)
			return mapped
		}
		r.logger.Error("Failed to create user", "username", user.Username, "error", err)
		return errors.Internal("failed to create user", err)
	}

	r.logger.Info("User created successfully", "user_id", user.ID)
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, username, password, phone, campus_card, created_at
		FROM users WHERE id = $1
	`
	return r.scanUser(ctx, query, id)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, password, phone, campus_card, created_at
		FROM users WHERE username = $1
	`
	return r.scanUser(ctx, query, username)
}

func (r *userRepository) scanUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Phone,
		&user.CampusCard,
		&user.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", "arg", arg, "error", err)
		return nil, errors.Internal("failed to get user", err)
	}

	return &user, nil
}

func (r *userRepository) UpdateUserContact(ctx context.Context, id, phone, campusCard string) error {
	query := `
		UPDATE users
		SET phone = $1, campus_card = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, phone, campusCard, id)
	if err != nil {
		if mapped := mapPQError(err); mapped != nil {
			return mapped
		}
		r.logger.Error("Failed to update user", "user_id", id, "error", err)
		return errors.Internal("failed to update user", err)
	}

	if err := expectOneRow(result, errors.ErrUserNotFound); err != nil {
		return err
	}

	r.logger.Info("User contact updated", "user_id", id)
	return nil
}

// expectOneRow returns notFound when an UPDATE matched no row.
func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
