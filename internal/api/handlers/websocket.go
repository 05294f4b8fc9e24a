package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GameSocketServer 게임 WebSocket 연결 처리 (인증은 업그레이드 후 수행)
type GameSocketServer interface {
	ServeGame(w http.ResponseWriter, r *http.Request, gameID string)
}

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	gateway GameSocketServer
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(gateway GameSocketServer) *WebSocketHandler {
	return &WebSocketHandler{
		gateway: gateway,
	}
}

// HandleGameSocket 게임 실시간 참가 엔드포인트
func (h *WebSocketHandler) HandleGameSocket(c *gin.Context) {
	h.gateway.ServeGame(c.Writer, c.Request, c.Param("gameId"))
}
