package api

import (
	"github.com/chessedu/chessedu-backend/internal/api/handlers"
	"github.com/chessedu/chessedu-backend/internal/api/middleware"
	"github.com/chessedu/chessedu-backend/internal/config"
	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/internal/websocket"
	"github.com/chessedu/chessedu-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Dependencies 라우터가 사용하는 조립된 컴포넌트
type Dependencies struct {
	UserService *service.UserService
	GameService *service.GameService
	Gateway     *websocket.Gateway
	JWTManager  *jwt.JWTManager

	// APILimiter / AuthLimiter가 nil이면 rate limit 미적용
	APILimiter  middleware.Limiter
	AuthLimiter middleware.Limiter

	// /health 에서 확인할 의존성
	HealthChecks map[string]handlers.Pinger
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Handler 초기화
	authHandler := handlers.NewAuthHandler(deps.UserService, deps.JWTManager)
	userHandler := handlers.NewUserHandler(deps.UserService)
	gameHandler := handlers.NewGameHandler(deps.GameService, deps.Gateway)
	wsHandler := handlers.NewWebSocketHandler(deps.Gateway)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	auth := middleware.Auth(deps.JWTManager)

	// Health check
	router.GET("/health", healthHandler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	if deps.APILimiter != nil {
		v1.Use(middleware.RateLimit(deps.APILimiter, middleware.DefaultKeyFunc))
	}
	{
		// WebSocket endpoint (토큰은 Gateway가 업그레이드 후 검증하고 close code로 응답)
		v1.GET("/ws/games/:gameId", wsHandler.HandleGameSocket)

		// Auth routes
		authRoutes := v1.Group("/auth")
		if deps.AuthLimiter != nil {
			authRoutes.Use(middleware.RateLimit(deps.AuthLimiter, middleware.IPKeyFunc))
		}
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/register", authHandler.Register)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(auth)
		{
			users.GET("/me", userHandler.GetCurrentUser)
		}

		// Game routes
		games := v1.Group("/games")
		{
			games.GET("", gameHandler.ListGames)
			games.GET("/live", gameHandler.GetLiveGames)
			games.GET("/my", auth, gameHandler.GetMyGames)
			games.GET("/:id", gameHandler.GetGame)
			games.GET("/:id/presence", gameHandler.GetPresence)
			games.POST("", auth, gameHandler.CreateGame)
			games.POST("/:id/moves", auth, gameHandler.MakeMove)
			games.POST("/:id/resign", auth, gameHandler.ResignGame)
			games.POST("/:id/end", auth, middleware.RequireRole(models.RoleCoach), gameHandler.EndGame)
		}
	}

	return router
}
