package websocket

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chessedu/chessedu-backend/pkg/ratelimit"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// 연결당 송신 버퍼. 가득 차면 Registry가 연결을 제거
	sendBufferSize = 256
)

// Client 게임 room에 참가한 WebSocket 연결 하나
type Client struct {
	registry *Registry
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	gameID   string
	limiter  *ratelimit.TokenBucket
	logger   *zap.Logger
}

// NewClient 클라이언트 생성
func NewClient(registry *Registry, conn *websocket.Conn, userID, gameID string, limiter *ratelimit.TokenBucket, logger *zap.Logger) *Client {
	return &Client{
		registry: registry,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		userID:   userID,
		gameID:   gameID,
		limiter:  limiter,
		logger:   logger,
	}
}

// UserID 인증된 사용자 ID
func (c *Client) UserID() string { return c.userID }

// GameID 연결된 게임 ID
func (c *Client) GameID() string { return c.gameID }

// readPump 클라이언트 메시지를 순서대로 handle에 전달 (핑/퐁 유지)
func (c *Client) readPump(handle func(*Client, []byte)) {
	defer func() {
		c.registry.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.String("userId", c.userID),
					zap.String("gameId", c.gameID),
					zap.Error(err))
			}
			return
		}

		handle(c, data)
	}
}

// writePump send 채널의 메시지를 클라이언트에 전송. 채널이 닫히면 close frame 후 종료
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Registry가 연결을 제거함
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Connection closed"))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("Failed to write message",
					zap.String("userId", c.userID),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// originChecker 허용된 origin만 업그레이드. Origin 헤더가 없으면 (비브라우저 클라이언트) 허용
func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		set[strings.ToLower(o)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
