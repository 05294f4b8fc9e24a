package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chessedu/chessedu-backend/internal/api/handlers"
	"github.com/chessedu/chessedu-backend/internal/api/middleware"
	"github.com/chessedu/chessedu-backend/internal/config"
	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/repository"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/internal/websocket"
	"github.com/chessedu/chessedu-backend/pkg/distributed"
	"github.com/chessedu/chessedu-backend/pkg/jwt"
	"github.com/chessedu/chessedu-backend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	registry *websocket.Registry
}

func newTestServer(t *testing.T, deps func(*Dependencies)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repository.NewMemoryUserRepository()
	userService := service.NewUserService(users)
	gameService := service.NewGameService(repository.NewMemoryGameRepository(), userService, service.NewELOService(), distributed.NewKeyedMutex())
	tokens := jwt.NewJWTManager("router-test-secret-0123456789abcdef", time.Hour)
	registry := websocket.NewRegistry(nil)

	d := Dependencies{
		UserService: userService,
		GameService: gameService,
		Gateway:     websocket.NewGateway(registry, gameService, tokens, websocket.GatewayConfig{}, nil),
		JWTManager:  tokens,
	}
	if deps != nil {
		deps(&d)
	}

	cfg := &config.Config{Env: "test", CORSAllowedOrigins: []string{"*"}}
	return &testServer{router: SetupRouter(cfg, d), registry: registry}
}

type response struct {
	Code int
	Body map[string]interface{}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	resp := response{Code: w.Code}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	}
	return resp
}

type account struct {
	ID    string
	Token string
}

func (s *testServer) register(t *testing.T, username string, role models.Role) account {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)

	user := resp.Body["user"].(map[string]interface{})
	return account{ID: user["id"].(string), Token: resp.Body["token"].(string)}
}

func gameField(t *testing.T, resp response, key string) interface{} {
	t.Helper()
	game, ok := resp.Body["game"].(map[string]interface{})
	require.True(t, ok, "response has no game: %v", resp.Body)
	return game[key]
}

func TestRouter_AuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice", "")

	resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Body["token"])

	resp = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "UNAUTHENTICATED", resp.Body["code"])

	resp = s.do(t, http.MethodGet, "/api/v1/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	user := resp.Body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, float64(models.DefaultRating), user["rating"])
	assert.NotContains(t, user, "passwordHash")

	resp = s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.do(t, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRouter_RegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "bob", "")

	resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "bob", "email": "other@example.com", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Body["code"])

	resp = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "x", "email": "not-an-email", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "admin", "email": "admin@example.com", "password": "password123", "role": "NATIONAL_ADMIN"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRouter_GameLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	white := s.register(t, "white", "")
	black := s.register(t, "black", "")

	resp := s.do(t, http.MethodPost, "/api/v1/games", white.Token, gin.H{"whiteId": white.ID, "blackId": black.ID, "timeControl": "10+5"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
	gameID := gameField(t, resp, "id").(string)
	assert.Equal(t, "PENDING", gameField(t, resp, "status"))
	assert.Equal(t, "", gameField(t, resp, "moves"))

	// 차례가 아닌 수
	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/moves", black.Token, gin.H{"move": "e5"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "Not white's turn", resp.Body["error"])

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/moves", white.Token, gin.H{"move": "e4"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "e4", gameField(t, resp, "moves"))
	assert.Equal(t, "ACTIVE", gameField(t, resp, "status"))

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/moves", black.Token, gin.H{"move": "e5"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "e4 e5", gameField(t, resp, "moves"))

	resp = s.do(t, http.MethodGet, "/api/v1/games/live", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["total"])

	resp = s.do(t, http.MethodGet, "/api/v1/games/my?status=ACTIVE", black.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["total"])

	resp = s.do(t, http.MethodGet, "/api/v1/games?userId="+white.ID+"&status=COMPLETED", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(0), resp.Body["total"])

	resp = s.do(t, http.MethodGet, "/api/v1/games?status=BOGUS", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodGet, "/api/v1/games/"+gameID+"/presence", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(0), resp.Body["connections"])

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/resign", black.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "COMPLETED", gameField(t, resp, "status"))
	assert.Equal(t, "WHITE_WIN", gameField(t, resp, "result"))

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/resign", white.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodGet, "/api/v1/users/me", white.Token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1216), resp.Body["user"].(map[string]interface{})["rating"])
}

func TestRouter_GameErrors(t *testing.T) {
	s := newTestServer(t, nil)
	white := s.register(t, "white", "")

	resp := s.do(t, http.MethodGet, "/api/v1/games/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", resp.Body["code"])

	resp = s.do(t, http.MethodPost, "/api/v1/games", white.Token, gin.H{"whiteId": white.ID, "blackId": white.ID, "timeControl": "10+5"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodPost, "/api/v1/games", white.Token, gin.H{"whiteId": white.ID})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodPost, "/api/v1/games", "", gin.H{"whiteId": white.ID, "blackId": "x", "timeControl": "10+5"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRouter_EndGameRequiresCoach(t *testing.T) {
	s := newTestServer(t, nil)
	white := s.register(t, "white", "")
	black := s.register(t, "black", "")
	coach := s.register(t, "coach", models.RoleCoach)

	resp := s.do(t, http.MethodPost, "/api/v1/games", coach.Token, gin.H{"whiteId": white.ID, "blackId": black.ID, "timeControl": "3+2"})
	require.Equal(t, http.StatusCreated, resp.Code)
	gameID := gameField(t, resp, "id").(string)

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/end", coach.Token, gin.H{"result": "DRAW"})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "PENDING game cannot be ended")

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/moves", white.Token, gin.H{"move": "d4"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/end", white.Token, gin.H{"result": "WHITE_WIN"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/end", coach.Token, gin.H{"result": "CHECKMATE"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodPost, "/api/v1/games/"+gameID+"/end", coach.Token, gin.H{"result": "DRAW"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "DRAW", gameField(t, resp, "result"))
}

func TestRouter_AuthRateLimit(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(2, 0.001)
	t.Cleanup(limiter.Stop)

	s := newTestServer(t, func(d *Dependencies) {
		d.AuthLimiter = middleware.NewMemoryLimiter(limiter)
	})

	body := gin.H{"email": "nobody@example.com", "password": "password123"}
	for i := 0; i < 2; i++ {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", resp.Body["code"])
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) {
		d.HealthChecks = map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(ctx context.Context) error { return nil }),
		}
	})

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body["status"])

	down := newTestServer(t, func(d *Dependencies) {
		d.HealthChecks = map[string]handlers.Pinger{
			"redis": handlers.PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
		}
	})
	resp = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "degraded", resp.Body["status"])
}
