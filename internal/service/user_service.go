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

const (
	minUsernameLength = 3
	maxUsernameLength = 32
)

// CreateUserInput is the body of a user creation.
type CreateUserInput struct {
	Username string
	Password string
	Role     models.Role
}

// UserService manages back-office accounts.
type UserService struct {
	tx       repository.Transactor
	userRepo *repository.UserRepository
	now      func() time.Time
}

func NewUserService(tx repository.Transactor, userRepo *repository.UserRepository) *UserService {
	return &UserService{tx: tx, userRepo: userRepo, now: time.Now}
}

// List returns every account without password hashes.
func (s *UserService) List(ctx context.Context) ([]models.UserView, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserView, len(users))
	for i := range users {
		out[i] = users[i].View()
	}
	return out, nil
}

// Create adds an account. Role defaults to staff.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.UserView, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = models.RoleStaff
	}
	if n := len(in.Username); n < minUsernameLength || n > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d to %d characters", utils.ErrValidation, minUsernameLength, maxUsernameLength)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", utils.ErrValidation, minPasswordLength)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role must be admin or staff", utils.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    s.now(),
	}

	err = s.tx.Exec(ctx, func(ctx context.Context) error {
		exists, err := s.userRepo.Exists(ctx, user.Username)
		if err != nil {
			return err
		}
		if exists {
			return utils.ErrDuplicateUsername
		}
		return s.userRepo.Put(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("User created")
	view := user.View()
	return &view, nil
}

// Delete removes username. Callers cannot delete themselves and the last admin
// cannot be removed.
func (s *UserService) Delete(ctx context.Context, username, actor string) error {
	if username == actor {
		return utils.ErrCannotDeleteSelf
	}
	return s.tx.Exec(ctx, func(ctx context.Context) error {
		users, err := s.userRepo.List(ctx)
		if err != nil {
			return err
		}
		var target *models.User
		admins := 0
		for i := range users {
			if users[i].Role == models.RoleAdmin {
				admins++
			}
			if users[i].Username == username {
				target = &users[i]
			}
		}
		if target == nil {
			return utils.ErrUserNotFound
		}
		if target.Role == models.RoleAdmin && admins <= 1 {
			return utils.ErrLastAdmin
		}
		if err := s.userRepo.Delete(ctx, username); err != nil {
			return err
		}
		log.Info().Str("username", username).Str("deleted_by", actor).Msg("User deleted")
		return nil
	})
}

// EnsureAdmin creates the bootstrap admin account when it does not exist. An
// empty password is replaced by a random one that is logged once.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.userRepo.Get(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	generated := password == ""
	if generated {
		if password, err = utils.GenerateSecret(12); err != nil {
			return err
		}
	}

	_, err = s.Create(ctx, CreateUserInput{Username: username, Password: password, Role: models.RoleAdmin})
	if errors.Is(err, utils.ErrDuplicateUsername) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	if generated {
		log.Warn().Str("username", username).Str("password", password).Msg("Bootstrap admin created with a generated password; change it after first login")
	} else {
		log.Info().Str("username", username).Msg("Bootstrap admin created")
	}
	return nil
}
