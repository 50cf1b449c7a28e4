package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

const minPasswordLength = 6

// dummyHash is compared against when the username is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("groupbuy-dummy-password"), bcrypt.DefaultCost)

// AuthService issues bearer tokens for back-office users.
type AuthService struct {
	tx       repository.Transactor
	userRepo *repository.UserRepository
	secret   string
	ttl      time.Duration
}

// NewAuthService constructs a new AuthService.
func NewAuthService(tx repository.Transactor, userRepo *repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{tx: tx, userRepo: userRepo, secret: secret, ttl: ttl}
}

// Login verifies the credentials and returns a signed token. Unknown users and
// wrong passwords both return utils.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: username and password are required", utils.ErrValidation)
	}

	user, err := s.userRepo.Get(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		log.Warn().Str("username", username).Msg("Login failed")
		return "", nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("username", username).Msg("Login failed")
		return "", nil, utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(s.secret, s.ttl, user.Username, string(user.Role))
	if err != nil {
		return "", nil, err
	}

	log.Info().Str("username", username).Str("role", string(user.Role)).Msg("Login successful")
	return token, user, nil
}

// ChangePassword replaces the password of username after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, username, current, next string) error {
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", utils.ErrValidation, minPasswordLength)
	}

	// Read, verify and write in one unit so a concurrent delete cannot be
	// undone by the write.
	err := s.tx.Exec(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.Get(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			return utils.ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
			return utils.ErrInvalidCredentials
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		return s.userRepo.Put(ctx, user)
	})
	if err != nil {
		return err
	}

	log.Info().Str("username", username).Msg("Password changed")
	return nil
}
