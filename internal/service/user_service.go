package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/repository"
)

type UserService struct {
	userRepo UserRepository
}

func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// Register 새 사용자 등록
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	// 입력 검증
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, NewValidationError("Username, email and password are required")
	}
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	if !in.Role.Valid() {
		return nil, NewValidationError("Invalid role")
	}

	// 이메일 중복 확인
	existingUser, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// 사용자명 중복 확인
	existingUser, err = s.userRepo.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUsernameTaken
	}

	// 비밀번호 해싱
	passwordHash, err := models.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Role:         in.Role,
		Rating:       models.DefaultRating,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login 로그인
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 비밀번호 확인
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetByID ID로 사용자 조회
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Exists 사용자 존재 여부
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user != nil, nil
}

// UpdateRating 레이팅 저장 (0~3000)
func (s *UserService) UpdateRating(ctx context.Context, id string, rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return ErrRatingOutOfRange
	}

	if err := s.userRepo.UpdateRating(ctx, id, rating); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update rating: %w", err)
	}

	return nil
}
