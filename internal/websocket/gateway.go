package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/pkg/jwt"
	"github.com/chessedu/chessedu-backend/pkg/ratelimit"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 연결 시점 인증/인가 실패 close code
const (
	CloseAuthenticationFailed = 4401
	CloseNotParticipant       = 4403
	CloseGameNotFound         = 4404
)

// GameActions Gateway가 사용하는 게임 상태 머신 연산.
// hooks와 WithGame의 fn은 게임 락 안에서 실행됨
type GameActions interface {
	WithGame(ctx context.Context, gameID string, fn func(*models.Game) error) error
	MakeMove(ctx context.Context, in service.MakeMoveInput, hooks ...service.CommitHook) (*models.Game, error)
	ResignGame(ctx context.Context, gameID, userID string, hooks ...service.CommitHook) (*models.Game, error)
	EndGame(ctx context.Context, gameID string, result models.GameResult, hooks ...service.CommitHook) (*models.Game, error)
}

var errNotParticipant = errors.New("not a participant")

// TokenVerifier bearer 토큰 검증
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

type GatewayConfig struct {
	AllowedOrigins []string
	MessageTimeout time.Duration // 메시지 하나 처리 제한 시간
	MessageBurst   int           // 연결당 inbound 메시지 burst
	MessageRate    float64       // 연결당 초당 inbound 메시지
}

// Gateway 실시간 게임 WebSocket 엔드포인트
type Gateway struct {
	registry *Registry
	games    GameActions
	tokens   TokenVerifier
	cfg      GatewayConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewGateway Gateway 생성
func NewGateway(registry *Registry, games GameActions, tokens TokenVerifier, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = 10 * time.Second
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 20
	}
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = 5
	}

	return &Gateway{
		registry: registry,
		games:    games,
		tokens:   tokens,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		logger: logger,
	}
}

// ServeGame 업그레이드 → 인증 → 참가자 확인 → room 참가 → GAME_STATE 전송.
// 참가와 스냅샷은 게임 락 안에서 하므로 이후 브로드캐스트는 모두 스냅샷보다 새 상태
func (g *Gateway) ServeGame(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	userID, code, reason := g.authenticate(r)
	if code == 0 {
		client := NewClient(g.registry, conn, userID, gameID,
			ratelimit.NewTokenBucket(g.cfg.MessageBurst, g.cfg.MessageRate), g.logger)

		err = g.games.WithGame(r.Context(), gameID, func(game *models.Game) error {
			return g.admit(client, game)
		})
		if err == nil {
			go client.writePump()
			go client.readPump(g.handleMessage)
			return
		}
		code, reason = g.admissionFailure(gameID, err)
	}

	g.logger.Info("WebSocket connection rejected",
		zap.String("gameId", gameID),
		zap.Int("code", code),
		zap.String("reason", reason))
	reject(conn, code, reason)
}

// authenticate bearer 토큰 검증. 실패 시 close code와 사유 반환
func (g *Gateway) authenticate(r *http.Request) (string, int, string) {
	token, ok := jwt.ExtractBearer(r.Header.Get("Authorization"))
	if !ok {
		return "", CloseAuthenticationFailed, "Authentication required"
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return "", CloseAuthenticationFailed, "Invalid or expired token"
	}

	return claims.UserID, 0, ""
}

// admit 게임 락 안에서 호출됨: 참가자 확인 → Join → 스냅샷 enqueue
func (g *Gateway) admit(client *Client, game *models.Game) error {
	if !game.IsPlayer(client.userID) {
		return errNotParticipant
	}

	state, err := encode(OutboundMessage{Type: TypeGameState, Data: game.State()})
	if err != nil {
		return err
	}

	g.registry.Join(game.ID, client, client.userID)
	g.registry.Send(client, state)
	return nil
}

func (g *Gateway) admissionFailure(gameID string, err error) (int, string) {
	switch {
	case errors.Is(err, errNotParticipant):
		return CloseNotParticipant, "Not a participant in this game"
	case errors.Is(err, service.ErrNotFound):
		return CloseGameNotFound, "Game not found"
	case errors.Is(err, service.ErrGameBusy):
		return websocket.CloseTryAgainLater, "Game is busy, please retry"
	}

	g.logger.Error("Failed to join game over WebSocket", zap.String("gameId", gameID), zap.Error(err))
	return websocket.CloseInternalServerErr, "Internal server error"
}

func reject(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	conn.Close()
}

// handleMessage inbound 메시지 하나 처리. 실패는 보낸 연결에만 ERROR로 응답
func (g *Gateway) handleMessage(c *Client, data []byte) {
	if !c.limiter.Allow() {
		g.reply(c, errorMessage("Rate limit exceeded"))
		return
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		g.reply(c, errorMessage("Invalid message format"))
		return
	}

	if msg.UserID != c.userID {
		g.reply(c, errorMessage("Invalid user ID"))
		return
	}
	if msg.GameID != "" && msg.GameID != c.gameID {
		g.reply(c, errorMessage("Invalid game ID"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.MessageTimeout)
	defer cancel()

	if err := g.dispatch(ctx, c, msg); err != nil {
		g.reply(c, errorMessage(g.clientMessage(c, msg, err)))
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, msg InboundMessage) error {
	switch msg.Type {
	case TypeMove:
		if msg.Move == "" {
			return service.NewValidationError("Move is required")
		}
		_, err := g.games.MakeMove(ctx, service.MakeMoveInput{
			GameID: c.gameID,
			Move:   msg.Move,
			UserID: c.userID,
		}, func(game *models.Game) {
			g.broadcast(game.ID, moveMessage(game, msg.Move), nil)
		})
		return err

	case TypeResign:
		_, err := g.games.ResignGame(ctx, c.gameID, c.userID, func(game *models.Game) {
			g.broadcast(game.ID, gameEndMessage(game, ReasonResignation), nil)
		})
		return err

	case TypeOfferDraw:
		g.broadcast(c.gameID, OutboundMessage{
			Type: TypeDrawOffer,
			Data: DrawPayload{GameID: c.gameID, UserID: c.userID},
		}, c)

	case TypeAcceptDraw:
		_, err := g.games.EndGame(ctx, c.gameID, models.GameResultDraw, func(game *models.Game) {
			g.broadcast(game.ID, gameEndMessage(game, ReasonAgreement), nil)
		})
		return err

	case TypeRejectDraw:
		g.broadcast(c.gameID, OutboundMessage{
			Type: TypeDrawRejected,
			Data: DrawPayload{GameID: c.gameID, UserID: c.userID},
		}, c)

	case TypeJoin:
		// 연결 시점에 이미 참가함

	case TypeLeave:
		g.registry.Leave(c)

	default:
		g.logger.Warn("Unknown WebSocket message type",
			zap.String("type", string(msg.Type)),
			zap.String("userId", c.userID),
			zap.String("gameId", c.gameID))
	}

	return nil
}

// clientMessage 도메인 오류는 메시지 그대로, 그 외는 일반 문구
func (g *Gateway) clientMessage(c *Client, msg InboundMessage, err error) string {
	if service.KindOf(err) != "" {
		return err.Error()
	}
	g.logger.Error("Failed to handle WebSocket message",
		zap.String("type", string(msg.Type)),
		zap.String("userId", c.userID),
		zap.String("gameId", c.gameID),
		zap.Error(err))
	return "Failed to process message"
}

func (g *Gateway) reply(c *Client, msg OutboundMessage) {
	data, err := encode(msg)
	if err != nil {
		g.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	g.registry.Send(c, data)
}

func (g *Gateway) broadcast(gameID string, msg OutboundMessage, exclude *Client) int {
	data, err := encode(msg)
	if err != nil {
		g.logger.Error("Failed to encode message", zap.String("gameId", gameID), zap.Error(err))
		return 0
	}
	return g.registry.Broadcast(gameID, data, exclude)
}

// NotifyMove WebSocket 밖(REST)에서 둔 수를 room에 전달. 커밋 순서를 지키려면 CommitHook 안에서 호출
func (g *Gateway) NotifyMove(game *models.Game, move string) int {
	return g.broadcast(game.ID, moveMessage(game, move), nil)
}

// NotifyGameEnd 외부에서 끝난 게임을 알리고 room을 닫음
func (g *Gateway) NotifyGameEnd(game *models.Game, reason string) int {
	delivered := g.broadcast(game.ID, gameEndMessage(game, reason), nil)
	g.registry.CloseRoom(game.ID)
	return delivered
}

// ConnectionCount room 연결 수
func (g *Gateway) ConnectionCount(gameID string) int {
	return g.registry.CountConnections(gameID)
}
