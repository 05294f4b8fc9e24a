package handlers

import (
	"net/http"

	"github.com/chessedu/chessedu-backend/internal/api/middleware"
	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

// GameNotifier REST에서 바뀐 게임 상태를 실시간 room에 전달 (게임 락 안에서 호출)
type GameNotifier interface {
	NotifyMove(game *models.Game, move string) int
	NotifyGameEnd(game *models.Game, reason string) int
	ConnectionCount(gameID string) int
}

type GameHandler struct {
	gameService *service.GameService
	notifier    GameNotifier
}

func NewGameHandler(gameService *service.GameService, notifier GameNotifier) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		notifier:    notifier,
	}
}

// CreateGame 게임 생성
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	game, err := h.gameService.CreateGame(c.Request.Context(), service.CreateGameInput{
		WhiteID:      req.WhiteID,
		BlackID:      req.BlackID,
		TimeControl:  req.TimeControl,
		TournamentID: req.TournamentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game": game})
}

// GetGame 게임 조회
func (h *GameHandler) GetGame(c *gin.Context) {
	game, err := h.gameService.GetGameByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

// ListGames 필터로 게임 목록 조회 (?userId=&status=&tournamentId=)
func (h *GameHandler) ListGames(c *gin.Context) {
	filters := models.GameFilters{
		UserID:       c.Query("userId"),
		TournamentID: c.Query("tournamentId"),
		Status:       statusQuery(c),
	}

	games, err := h.gameService.GetGames(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games, "total": len(games)})
}

// GetMyGames 내가 참가한 게임 (?status=)
func (h *GameHandler) GetMyGames(c *gin.Context) {
	games, err := h.gameService.GetUserGames(c.Request.Context(), c.GetString(middleware.ContextUserID), statusQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games, "total": len(games)})
}

// GetLiveGames 진행 중인 게임
func (h *GameHandler) GetLiveGames(c *gin.Context) {
	games, err := h.gameService.GetActiveGames(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games, "total": len(games)})
}

// MakeMove 수 두기
func (h *GameHandler) MakeMove(c *gin.Context) {
	var req models.MakeMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	game, err := h.gameService.MakeMove(c.Request.Context(), service.MakeMoveInput{
		GameID: c.Param("id"),
		Move:   req.Move,
		UserID: c.GetString(middleware.ContextUserID),
	}, func(game *models.Game) {
		h.notifier.NotifyMove(game, req.Move)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

// ResignGame 기권
func (h *GameHandler) ResignGame(c *gin.Context) {
	game, err := h.gameService.ResignGame(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID),
		func(game *models.Game) {
			h.notifier.NotifyGameEnd(game, websocket.ReasonResignation)
		})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

// EndGame 결과 지정 종료 (코치 이상)
func (h *GameHandler) EndGame(c *gin.Context) {
	var req models.EndGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	game, err := h.gameService.EndGame(c.Request.Context(), c.Param("id"), req.Result, func(game *models.Game) {
		h.notifier.NotifyGameEnd(game, websocket.ReasonEnded)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

// GetPresence 게임 room의 실시간 연결 수
func (h *GameHandler) GetPresence(c *gin.Context) {
	game, err := h.gameService.GetGameByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gameId":      game.ID,
		"connections": h.notifier.ConnectionCount(game.ID),
	})
}

func statusQuery(c *gin.Context) *models.GameStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	status := models.GameStatus(raw)
	return &status
}
