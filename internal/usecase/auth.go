package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhanatb/linguabook/internal/domain"
	"github.com/zhanatb/linguabook/internal/password"
	"github.com/zhanatb/linguabook/internal/repository"
	"github.com/zhanatb/linguabook/internal/token"
)

type AuthUsecase struct {
	users  repository.UserRepository
	hasher *password.Hasher
	tokens *token.Issuer
}

func NewAuthUsecase(users repository.UserRepository, hasher *password.Hasher, tokens *token.Issuer) *AuthUsecase {
	return &AuthUsecase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// AuthResult is what both flows hand back to the transport layer: a signed
// bearer token and the user it authenticates. The password hash stays out.
type AuthResult struct {
	Token string
	User  *domain.User
}

// Register creates a user and signs them in. The plaintext password exists
// only within this call; only its bcrypt hash is persisted. Duplicate emails
// are decided by the storage layer's unique constraint, so two concurrent
// registrations for the same email cannot both succeed.
func (u *AuthUsecase) Register(ctx context.Context, email, plaintext string) (*AuthResult, error) {
	email = normalizeEmail(email)

	_, err := u.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrDuplicateEmail
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := u.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	signed, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: signed, User: user}, nil
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password both return domain.ErrInvalidCredentials so a caller
// cannot probe which accounts exist.
func (u *AuthUsecase) Login(ctx context.Context, email, plaintext string) (*AuthResult, error) {
	email = normalizeEmail(email)

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.hasher.Verify(plaintext, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	signed, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: signed, User: user}, nil
}

// GetUser loads the user behind an authenticated subject ID.
func (u *AuthUsecase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
