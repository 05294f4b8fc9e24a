package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/google/uuid"
)

// MemoryGameRepository DB 없이 동작하는 개발/테스트용 게임 저장소.
// 저장과 반환 시 항상 복사본을 사용한다.
type MemoryGameRepository struct {
	mu    sync.RWMutex
	games map[string]*models.Game
	now   func() time.Time
}

func NewMemoryGameRepository() *MemoryGameRepository {
	return &MemoryGameRepository{
		games: make(map[string]*models.Game),
		now:   time.Now,
	}
}

func (m *MemoryGameRepository) Create(ctx context.Context, game *models.Game) (*models.Game, error) {
	created := game.Clone()
	created.ID = uuid.NewString()
	created.Version = 0
	created.CreatedAt = m.now()
	created.UpdatedAt = created.CreatedAt

	m.mu.Lock()
	m.games[created.ID] = created
	m.mu.Unlock()

	return created.Clone(), nil
}

func (m *MemoryGameRepository) FindByID(ctx context.Context, id string) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	game, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	return game.Clone(), nil
}

func (m *MemoryGameRepository) FindMany(ctx context.Context, filters models.GameFilters) ([]*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := []*models.Game{}
	for _, g := range m.games {
		if filters.UserID != "" && !g.IsPlayer(filters.UserID) {
			continue
		}
		if filters.Status != nil && g.Status != *filters.Status {
			continue
		}
		if filters.TournamentID != "" && (g.TournamentID == nil || *g.TournamentID != filters.TournamentID) {
			continue
		}
		games = append(games, g.Clone())
	}

	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt.After(games[j].CreatedAt) })
	return games, nil
}

func (m *MemoryGameRepository) FindActive(ctx context.Context) ([]*models.Game, error) {
	status := models.GameStatusActive
	games, err := m.FindMany(ctx, models.GameFilters{Status: &status})
	if err != nil {
		return nil, err
	}
	sort.Slice(games, func(i, j int) bool { return games[i].UpdatedAt.After(games[j].UpdatedAt) })
	return games, nil
}

// Update 버전이 일치할 때만 반영 (GameRepository.Update와 동일한 규칙)
func (m *MemoryGameRepository) Update(ctx context.Context, game *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.games[game.ID]
	if !ok || stored.Version != game.Version {
		return ErrConflict
	}

	next := game.Clone()
	next.Version = stored.Version + 1
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = m.now()
	m.games[game.ID] = next

	game.Version = next.Version
	game.UpdatedAt = next.UpdatedAt
	return nil
}

// MemoryUserRepository 개발/테스트용 사용자 저장소
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]*models.User),
		now:   time.Now,
	}
}

func (m *MemoryUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	created := *user
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = m.now()
	created.UpdatedAt = created.CreatedAt

	m.mu.Lock()
	m.users[created.ID] = &created
	m.mu.Unlock()

	out := created
	return &out, nil
}

func (m *MemoryUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id }), nil
}

func (m *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (m *MemoryUserRepository) find(match func(*models.User) bool) *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			out := *u
			return &out
		}
	}
	return nil
}

func (m *MemoryUserRepository) UpdateRating(ctx context.Context, id string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Rating = rating
	u.UpdatedAt = m.now()
	return nil
}
