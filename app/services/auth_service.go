package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/elmesiashu/tenseishitara/app/models"
	"github.com/elmesiashu/tenseishitara/app/repositories"
	"github.com/elmesiashu/tenseishitara/pkg/auth"
)

// AuthService handles registration and login.
type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginInput is the validated login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is what a successful login or registration returns.
type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// Register creates a user with a hashed password and returns fresh tokens.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (TokenPair, error) {
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return TokenPair{}, err
	}

	user := models.User{Name: in.Name, Email: in.Email, Password: hash, Role: "user"}
	if err := s.users.Create(ctx, &user); err != nil {
		return TokenPair{}, err
	}

	return s.issueTokens(user)
}

// Login verifies credentials and returns fresh tokens.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	if !auth.CheckPassword(user.Password, in.Password) {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user models.User) (TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := auth.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
