package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"idealtransport/cache"
	"idealtransport/models"
	"idealtransport/repository"
)

const (
	TokenType        = "bearer"
	tokenKeyPrefix   = "token:"
	minPasswordBytes = 8
)

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

// dummyHash is compared against when the email is unknown so a login
// takes the same time whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordBytes {
		return "", invalidInput("password must be at least %d characters", minPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", invalidInput("password must be at most 72 bytes")
		}
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthService issues and resolves opaque bearer tokens. Tokens live only in
// the token cache, so logging out or letting the TTL lapse revokes them.
type AuthService struct {
	users  repository.UserRepository
	tokens cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens cache.Cache, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, ttl: ttl, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, in *models.RegisterInput) (*models.User, error) {
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:          normalizeEmail(in.Email),
		HashedPassword: hashed,
		FullName:       strings.TrimSpace(in.FullName),
		IsActive:       true,
	}
	if err := createUser(ctx, s.users, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.Int64("user_id", u.ID))
	return u, nil
}

func createUser(ctx context.Context, users repository.UserRepository, u *models.User) error {
	if err := users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return conflict("email_registered", "Email %s is already registered", u.Email)
		}
		return fmt.Errorf("auth: create user: %w", err)
	}
	return nil
}

// Login checks credentials and returns a fresh access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !u.IsActive {
		return nil, errInvalidCredentials
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("auth: token: %w", err)
	}
	token := id.String()
	if err := s.tokens.Set(ctx, tokenKeyPrefix+token, []byte(strconv.FormatInt(u.ID, 10)), s.ttl); err != nil {
		return nil, fmt.Errorf("auth: store token: %w", err)
	}
	return &models.TokenResponse{AccessToken: token, TokenType: TokenType}, nil
}

// Resolve maps a bearer token to the active user it was issued to.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, errInvalidToken
	}
	raw, err := s.tokens.Get(ctx, tokenKeyPrefix+token)
	if errors.Is(err, cache.ErrMiss) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("auth: read token: %w", err)
	}
	userID, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, errInvalidToken
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	if !u.IsActive {
		return nil, errInvalidToken
	}
	return u.Principal(), nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Delete(ctx, tokenKeyPrefix+token); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// Me returns the full record of the authenticated user.
func (s *AuthService) Me(ctx context.Context, p *models.Principal) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, p.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("auth: me: %w", err)
	}
	return u, nil
}
