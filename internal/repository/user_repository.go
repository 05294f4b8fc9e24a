package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/pkg/database"
	"github.com/google/uuid"
)

const userColumns = `id, username, email, password_hash, role, rating, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Rating,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Create 새 사용자 생성
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Rating,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// FindByID ID로 사용자 찾기
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail 이메일로 사용자 찾기
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByUsername 사용자명으로 찾기
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username", username)
}

// column은 호출부의 상수만 사용
func (r *UserRepository) findOne(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // 사용자 없음
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// UpdateRating 레이팅 저장
func (r *UserRepository) UpdateRating(ctx context.Context, id string, rating int) error {
	query := `
		UPDATE users
		SET rating = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := r.db.ExecContext(ctx, query, rating, id)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
