package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"campus-market/internal/auth"
	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type UserService struct {
	store  domain.Store
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	now    func() time.Time
	logger *slog.Logger
}

func NewUserService(store domain.Store, hasher *auth.PasswordHasher, tokens *auth.TokenManager, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		now:    utcNow,
		logger: logger,
	}
}

type RegisterRequest struct {
	Username   string
	Password   string
	Phone      string
	CampusCard string
}

type UpdateProfileRequest struct {
	Phone      *string
	CampusCard *string
}

type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	phone := strings.TrimSpace(req.Phone)
	card := strings.TrimSpace(req.CampusCard)

	s.logger.Info("Registering user", "username", username)

	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if err := domain.ValidateCampusCard(card); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err)
		return nil, errors.Internal("failed to hash password", err)
	}

	user := &domain.User{
		ID:           domain.NewUserID(),
		Username:     username,
		PasswordHash: hash,
		Phone:        phone,
		CampusCard:   card,
		CreatedAt:    s.now(),
	}

	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			s.logger.Warn("Login attempt for unknown user", "username", username)
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Warn("Login attempt with wrong password", "user_id", user.ID)
		return nil, errors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.logger.Error("Failed to issue token", "user_id", user.ID, "error", err)
		return nil, errors.Internal("failed to issue token", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to the id of an existing user.
func (s *UserService) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", err
	}

	if _, err := s.store.Users().GetUserByID(ctx, userID); err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return "", errors.ErrInvalidToken.WithDetails("user no longer exists")
		}
		return "", err
	}

	return userID, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.Users().GetUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	if req.Phone == nil && req.CampusCard == nil {
		return nil, errors.ErrInvalidInput.WithDetails("no fields to update")
	}

	var updated *domain.User
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		if req.Phone != nil {
			user.Phone = strings.TrimSpace(*req.Phone)
			if err := domain.ValidatePhone(user.Phone); err != nil {
				return err
			}
		}
		if req.CampusCard != nil {
			user.CampusCard = strings.TrimSpace(*req.CampusCard)
			if err := domain.ValidateCampusCard(user.CampusCard); err != nil {
				return err
			}
		}

		if err := tx.Users().UpdateUserContact(ctx, user.ID, user.Phone, user.CampusCard); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated", "user_id", userID)
	return updated, nil
}
