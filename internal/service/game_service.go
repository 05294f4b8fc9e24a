package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/repository"
	"github.com/chessedu/chessedu-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// "분+증가초" 형식 (예: "10+0", "30+5")
var timeControlPattern = regexp.MustCompile(`^\d+\+\d+$`)

type GameService struct {
	gameRepo    GameRepository
	userService *UserService
	eloService  *ELOService
	locker      GameLocker
}

func NewGameService(
	gameRepo GameRepository,
	userService *UserService,
	eloService *ELOService,
	locker GameLocker,
) *GameService {
	return &GameService{
		gameRepo:    gameRepo,
		userService: userService,
		eloService:  eloService,
		locker:      locker,
	}
}

type CreateGameInput struct {
	WhiteID      string
	BlackID      string
	TimeControl  string
	TournamentID *string
}

// CommitHook 변경이 저장된 직후 게임 락 안에서 호출됨. 커밋 순서대로 실행되므로
// 실시간 전달 순서가 저장 순서와 같다. 블로킹하면 안 됨
type CommitHook func(game *models.Game)

type MakeMoveInput struct {
	GameID string
	Move   string
	UserID string
}

// CreateGame 새 게임 생성 (PENDING)
func (s *GameService) CreateGame(ctx context.Context, in CreateGameInput) (*models.Game, error) {
	// 플레이어 존재 확인
	for _, id := range []string{in.WhiteID, in.BlackID} {
		exists, err := s.userService.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrInvalidPlayers
		}
	}

	if in.WhiteID == in.BlackID {
		return nil, ErrSelfPlay
	}

	if !timeControlPattern.MatchString(in.TimeControl) {
		return nil, ErrInvalidTimeControl
	}

	game, err := s.gameRepo.Create(ctx, &models.Game{
		WhiteID:      in.WhiteID,
		BlackID:      in.BlackID,
		Moves:        models.MoveList{},
		Status:       models.GameStatusPending,
		TimeControl:  in.TimeControl,
		TournamentID: in.TournamentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	logger.Info("Game created",
		"gameId", game.ID,
		"whiteId", game.WhiteID,
		"blackId", game.BlackID,
		"timeControl", game.TimeControl,
	)

	return game, nil
}

// GetGameByID 게임 조회
func (s *GameService) GetGameByID(ctx context.Context, id string) (*models.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	return game, nil
}

// GetGames 필터 조건으로 게임 목록 조회
func (s *GameService) GetGames(ctx context.Context, filters models.GameFilters) ([]*models.Game, error) {
	if filters.Status != nil && !filters.Status.Valid() {
		return nil, NewValidationError("Invalid game status")
	}

	games, err := s.gameRepo.FindMany(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}
	return games, nil
}

// GetUserGames 사용자가 참가한 게임 목록
func (s *GameService) GetUserGames(ctx context.Context, userID string, status *models.GameStatus) ([]*models.Game, error) {
	return s.GetGames(ctx, models.GameFilters{UserID: userID, Status: status})
}

// GetActiveGames 진행 중인 게임 목록
func (s *GameService) GetActiveGames(ctx context.Context) ([]*models.Game, error) {
	games, err := s.gameRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active games: %w", err)
	}
	return games, nil
}

// MakeMove 수 두기. 차례는 수순 개수로 결정되며 첫 수에서 PENDING → ACTIVE
func (s *GameService) MakeMove(ctx context.Context, in MakeMoveInput, hooks ...CommitHook) (*models.Game, error) {
	game, err := s.mutate(ctx, in.GameID, func(game *models.Game) error {
		if !game.Status.AcceptsMoves() {
			return ErrGameNotActive
		}

		turn := game.Moves.Turn()
		if in.UserID != game.PlayerFor(turn) {
			if turn == models.White {
				return ErrNotWhitesTurn
			}
			return ErrNotBlacksTurn
		}

		if !models.ValidMoveToken(in.Move) {
			return ErrInvalidMove
		}

		game.Moves = game.Moves.Append(in.Move)
		if game.Status == models.GameStatusPending {
			game.Status = models.GameStatusActive
		}
		return nil
	}, hooks)
	if err != nil {
		return nil, err
	}

	logger.Debug("Move accepted",
		"gameId", game.ID,
		"userId", in.UserID,
		"move", in.Move,
		"moveCount", game.Moves.Len(),
	)

	return game, nil
}

// ResignGame 기권. PENDING 게임도 기권 가능 (부전패 처리)
func (s *GameService) ResignGame(ctx context.Context, gameID, userID string, hooks ...CommitHook) (*models.Game, error) {
	game, err := s.mutate(ctx, gameID, func(game *models.Game) error {
		if !game.Status.AcceptsMoves() {
			return ErrGameNotActive
		}

		color, ok := game.ColorOf(userID)
		if !ok {
			return ErrNotAPlayer
		}

		result := models.WinFor(color.Opponent())
		game.Status = models.GameStatusCompleted
		game.Result = &result
		return nil
	}, hooks)
	if err != nil {
		return nil, err
	}

	logger.Info("Game resigned", "gameId", game.ID, "userId", userID, "result", *game.Result)

	s.updateRatingsAfterGame(ctx, game)
	return game, nil
}

// EndGame 결과를 지정해 게임 종료 (무승부 합의 등)
func (s *GameService) EndGame(ctx context.Context, gameID string, result models.GameResult, hooks ...CommitHook) (*models.Game, error) {
	game, err := s.mutate(ctx, gameID, func(game *models.Game) error {
		if game.Status != models.GameStatusActive {
			return ErrGameNotActive
		}
		if !result.Valid() {
			return ErrInvalidResult
		}

		game.Status = models.GameStatusCompleted
		game.Result = &result
		return nil
	}, hooks)
	if err != nil {
		return nil, err
	}

	logger.Info("Game ended", "gameId", game.ID, "result", result)

	s.updateRatingsAfterGame(ctx, game)
	return game, nil
}

// WithGame 게임 락을 잡은 상태에서 최신 게임으로 fn 실행.
// 스냅샷 전송과 room 참가를 커밋 알림 사이에 끼워 넣을 때 사용
func (s *GameService) WithGame(ctx context.Context, gameID string, fn func(*models.Game) error) error {
	unlock, err := s.lock(ctx, gameID)
	if err != nil {
		return err
	}
	defer unlock()

	game, err := s.GetGameByID(ctx, gameID)
	if err != nil {
		return err
	}
	return fn(game)
}

func (s *GameService) lock(ctx context.Context, gameID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, gameID)
	if err != nil {
		logger.Warn("Failed to acquire game lock", "gameId", gameID, "error", err)
		return nil, &Error{Kind: KindValidation, Message: ErrGameBusy.Error(), Err: err}
	}
	return unlock, nil
}

// mutate 게임 락을 잡은 상태에서 읽기 → 변경 → 조건부 저장 → hooks
func (s *GameService) mutate(ctx context.Context, gameID string, apply func(*models.Game) error, hooks []CommitHook) (*models.Game, error) {
	unlock, err := s.lock(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	game, err := s.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if err := apply(game); err != nil {
		return nil, err
	}

	if err := s.gameRepo.Update(ctx, game); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	for _, hook := range hooks {
		hook(game)
	}

	return game, nil
}

// updateRatingsAfterGame 게임 종료 후 두 플레이어 레이팅 갱신.
// 두 쓰기는 독립적이며 실패해도 게임 결과는 되돌리지 않는다.
func (s *GameService) updateRatingsAfterGame(ctx context.Context, game *models.Game) {
	if game.Status != models.GameStatusCompleted || game.Result == nil {
		return
	}

	white, err := s.userService.GetByID(ctx, game.WhiteID)
	if err != nil {
		logger.Error("Rating update skipped: failed to load white player", "gameId", game.ID, "userId", game.WhiteID, "error", err)
		return
	}
	black, err := s.userService.GetByID(ctx, game.BlackID)
	if err != nil {
		logger.Error("Rating update skipped: failed to load black player", "gameId", game.ID, "userId", game.BlackID, "error", err)
		return
	}

	newWhite, newBlack, ok := s.eloService.CalculateNewRatings(white.Rating, black.Rating, *game.Result)
	if !ok {
		return
	}

	var g errgroup.Group
	g.Go(func() error { return s.writeRating(ctx, game.ID, white, newWhite) })
	g.Go(func() error { return s.writeRating(ctx, game.ID, black, newBlack) })

	if err := g.Wait(); err != nil {
		logger.Error("Ratings left inconsistent: game completed but a rating write failed",
			"gameId", game.ID,
			"result", *game.Result,
			"error", err,
		)
		return
	}

	logger.Info("Ratings updated",
		"gameId", game.ID,
		"whiteId", white.ID, "whiteRating", newWhite, "whiteChange", newWhite-white.Rating,
		"blackId", black.ID, "blackRating", newBlack, "blackChange", newBlack-black.Rating,
	)
}

func (s *GameService) writeRating(ctx context.Context, gameID string, user *models.User, rating int) error {
	if err := s.userService.UpdateRating(ctx, user.ID, rating); err != nil {
		logger.Error("Rating write failed after game completion",
			"gameId", gameID,
			"userId", user.ID,
			"previousRating", user.Rating,
			"intendedRating", rating,
			"error", err,
		)
		return fmt.Errorf("rating write for %s: %w", user.ID, err)
	}
	return nil
}
