package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"pierre/internal/auth"
	apperrors "pierre/internal/errors"
	"pierre/internal/models"
	"pierre/internal/session"

	"github.com/google/uuid"
)

type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, time.Time, error)
	Parse(raw string) (uuid.UUID, *auth.Claims, error)
}

type AuthService struct {
	userRepo   UserStore
	tokens     TokenIssuer
	bcryptCost int
}

func NewAuthService(userRepo UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// WithBcryptCost overrides the hashing cost for new passwords.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.New(apperrors.KindAuthRequired, "invalid email or password")
	}
	return s.issue(user)
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "invalid email %q", req.Email)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.KindValidation, "email %s is already registered", email)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		PhoneNumber:  req.PhoneNumber,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: *user, Token: token}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuthRequired, err, "invalid or expired token")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindAuthRequired, "user no longer exists")
	}
	return user, nil
}

// Me returns the signed-in user as currently stored.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	current, err := session.FromContext(ctx).RequireUser()
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "user %s not found", current.ID)
	}
	return user, nil
}
