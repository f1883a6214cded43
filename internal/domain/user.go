package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"campus-market/internal/errors"
)

type User struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	CampusCard   string    `json:"campus_card"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUserContact(ctx context.Context, id, phone, campusCard string) error
}

var (
	phonePattern      = regexp.MustCompile(`^1[3-9]\d{9}$`)
	campusCardPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

func ValidateUsername(username string) error {
	if n := utf8.RuneCountInString(username); n < 1 || n > 20 {
		return errors.ErrInvalidInput.WithDetails("username must be 1 to 20 characters")
	}
	return nil
}

func ValidatePassword(password string) error {
	if n := len(password); n < 6 || n > 64 {
		return errors.ErrInvalidInput.WithDetails("password must be 6 to 64 characters")
	}
	return nil
}

func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return errors.ErrInvalidInput.WithDetails("phone number format is invalid")
	}
	return nil
}

// ValidateCampusCard accepts 1 to 20 characters that are alphanumeric once
// spaces are removed.
func ValidateCampusCard(card string) error {
	if n := utf8.RuneCountInString(card); n < 1 || n > 20 {
		return errors.ErrInvalidInput.WithDetails("campus card must be 1 to 20 characters")
	}
	if !campusCardPattern.MatchString(strings.ReplaceAll(card, " ", "")) {
		return errors.ErrInvalidInput.WithDetails("campus card format is invalid")
	}
	return nil
}
