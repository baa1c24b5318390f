package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
	"assettracker-backend/internal/security"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 6

type AuthOptions struct {
	AllowAdminSignup bool
	BcryptCost       int
}

type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
	opts     AuthOptions
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager, opts AuthOptions) AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{userRepo: userRepo, tokens: tokens, opts: opts}
}

func (s *authService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	logger.EnterMethod("authService.Register", "email", email, "role", role)

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = domain.RoleUser
	}

	switch {
	case name == "" || email == "" || password == "":
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	case !validEmail(email):
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	case len(password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	case !role.Valid():
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	case role == domain.RoleAdmin && !s.opts.AllowAdminSignup:
		return nil, fmt.Errorf("%w: admin self-registration is disabled", domain.ErrForbidden)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		logger.ExitMethodWithError("authService.Register", err, "email", email)
		return nil, err
	}

	logger.ExitMethod("authService.Register", "userID", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	logger.EnterMethod("authService.Login", "email", email)

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, "", err
	}

	logger.ExitMethod("authService.Login", "userID", user.ID)
	return user, token, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
