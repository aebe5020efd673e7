package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Kyazs/BI-Record-Tracking/internal/models"
	"github.com/Kyazs/BI-Record-Tracking/internal/repository"
)

// UserService manages user accounts
type UserService struct {
	users   repository.UserRepository
	refresh repository.RefreshTokenRepository
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, refresh repository.RefreshTokenRepository) *UserService {
	return &UserService{users: users, refresh: refresh}
}

// CreateUserInput is the account creation request
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserInput is a partial account update; nil fields are untouched
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// Create validates and persists a new user account
func (s *UserService) Create(ctx context.Context, in *CreateUserInput) (*models.User, error) {
	ve := NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		ve.Add("name", "name is required")
	}
	if !validEmail(in.Email) {
		ve.Add("email", "email must be a valid email address")
	}
	if len(in.Password) < 4 {
		ve.Add("password", "password must be at least 4 characters")
	}
	if in.Role != "" && !models.ValidRole(in.Role) {
		ve.Add("role", "role must be admin or officer")
	}
	if ve.Any() {
		return nil, ve
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Name:              strings.TrimSpace(in.Name),
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		EncryptedPassword: string(hash),
		Role:              in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			ve.Add("email", "email has already been taken")
			return nil, ve
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// Update applies the supplied fields to an existing account
func (s *UserService) Update(ctx context.Context, id uint, in *UpdateUserInput) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}

	ve := NewValidationError()
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			ve.Add("name", "name is required")
		} else {
			user.Name = strings.TrimSpace(*in.Name)
		}
	}
	if in.Email != nil {
		if !validEmail(*in.Email) {
			ve.Add("email", "email must be a valid email address")
		} else {
			user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		}
	}
	if in.Password != nil {
		if len(*in.Password) < 4 {
			ve.Add("password", "password must be at least 4 characters")
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hashing password: %w", err)
			}
			user.EncryptedPassword = string(hash)
		}
	}
	if in.Role != nil {
		if !models.ValidRole(*in.Role) {
			ve.Add("role", "role must be admin or officer")
		} else {
			user.Role = *in.Role
		}
	}
	if ve.Any() {
		return nil, ve
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			ve.Add("email", "email has already been taken")
			return nil, ve
		}
		return nil, fmt.Errorf("updating user %d: %w", id, err)
	}
	return user, nil
}

// Delete removes a user account and its refresh tokens
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("loading user %d: %w", id, err)
	}
	if err := s.refresh.DeleteByUser(ctx, id); err != nil {
		return fmt.Errorf("removing refresh tokens for user %d: %w", id, err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	return nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}
	return user, nil
}

// List returns a page of users with the total match count
func (s *UserService) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	return s.users.List(ctx, query)
}

// Count returns the total number of users
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}
