package service

import (
	"context"

	"github.com/chessedu/chessedu-backend/internal/models"
)

// GameRepository 게임 영속성 계약. 없는 게임은 (nil, nil)
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) (*models.Game, error)
	FindByID(ctx context.Context, id string) (*models.Game, error)
	FindMany(ctx context.Context, filters models.GameFilters) ([]*models.Game, error)
	FindActive(ctx context.Context) ([]*models.Game, error)
	// Update는 game.Version이 저장된 값과 다르면 repository.ErrConflict 반환
	Update(ctx context.Context, game *models.Game) error
}

// UserRepository 사용자 영속성 계약. 없는 사용자는 (nil, nil)
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateRating(ctx context.Context, id string, rating int) error
}

// GameLocker 게임 ID 단위 상호배제. 반환된 함수로 해제
type GameLocker interface {
	Lock(ctx context.Context, gameID string) (func(), error)
}
