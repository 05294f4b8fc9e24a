package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/pkg/database"
	"github.com/google/uuid"
)

const gameColumns = `id, white_id, black_id, moves, status, result, time_control,
		       tournament_id, version, created_at, updated_at`

type GameRepository struct {
	db *database.DB
}

func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	game := &models.Game{}
	err := row.Scan(
		&game.ID,
		&game.WhiteID,
		&game.BlackID,
		&game.Moves,
		&game.Status,
		&game.Result,
		&game.TimeControl,
		&game.TournamentID,
		&game.Version,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	return game, err
}

// Create 새 게임 생성 (PENDING, 빈 수순)
func (r *GameRepository) Create(ctx context.Context, game *models.Game) (*models.Game, error) {
	query := `
		INSERT INTO games (id, white_id, black_id, moves, status, time_control, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + gameColumns

	created, err := scanGame(r.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		game.WhiteID,
		game.BlackID,
		game.Moves,
		game.Status,
		game.TimeControl,
		game.TournamentID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return created, nil
}

// FindByID ID로 게임 찾기
func (r *GameRepository) FindByID(ctx context.Context, id string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game: %w", err)
	}

	return game, nil
}

// FindMany 필터 조건으로 게임 목록 조회 (최신순)
func (r *GameRepository) FindMany(ctx context.Context, filters models.GameFilters) ([]*models.Game, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filters.UserID != "" {
		args = append(args, filters.UserID)
		conditions = append(conditions, fmt.Sprintf("(white_id = $%d OR black_id = $%d)", len(args), len(args)))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.TournamentID != "" {
		args = append(args, filters.TournamentID)
		conditions = append(conditions, fmt.Sprintf("tournament_id = $%d", len(args)))
	}

	query := `SELECT ` + gameColumns + ` FROM games`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	return r.query(ctx, query, args...)
}

// FindActive 진행 중인 게임 목록 (최근 변경순)
func (r *GameRepository) FindActive(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE status = $1 ORDER BY updated_at DESC`
	return r.query(ctx, query, models.GameStatusActive)
}

func (r *GameRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := []*models.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	return games, nil
}

// Update 수순/상태/결과 저장. game.Version이 저장된 값과 같을 때만 반영되며
// 성공 시 game.Version, game.UpdatedAt이 갱신된다.
func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	query := `
		UPDATE games
		SET moves = $1,
		    status = $2,
		    result = $3,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $4 AND version = $5
		RETURNING version, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		game.Moves,
		game.Status,
		game.Result,
		game.ID,
		game.Version,
	).Scan(&game.Version, &game.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}
