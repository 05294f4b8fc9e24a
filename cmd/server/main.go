package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chessedu/chessedu-backend/internal/api"
	"github.com/chessedu/chessedu-backend/internal/api/handlers"
	"github.com/chessedu/chessedu-backend/internal/api/middleware"
	"github.com/chessedu/chessedu-backend/internal/config"
	"github.com/chessedu/chessedu-backend/internal/repository"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/internal/websocket"
	"github.com/chessedu/chessedu-backend/pkg/database"
	"github.com/chessedu/chessedu-backend/pkg/distributed"
	"github.com/chessedu/chessedu-backend/pkg/jwt"
	"github.com/chessedu/chessedu-backend/pkg/logger"
	"github.com/chessedu/chessedu-backend/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting ChessEdu Backend",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	ctx := context.Background()
	healthChecks := map[string]handlers.Pinger{}

	// 저장소: DATABASE_URL이 없으면 인메모리
	var (
		gameRepo service.GameRepository
		userRepo service.UserRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", "error", err)
		}

		gameRepo = repository.NewGameRepository(db)
		userRepo = repository.NewUserRepository(db)
		healthChecks["database"] = handlers.PingFunc(db.PingContext)
		logger.Info("Database connection established")
	} else {
		gameRepo = repository.NewMemoryGameRepository()
		userRepo = repository.NewMemoryUserRepository()
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	// 게임 락 / Rate Limit: REDIS_URL이 있으면 인스턴스 간 공유
	var (
		locker      service.GameLocker
		apiLimiter  middleware.Limiter
		authLimiter middleware.Limiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", "error", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}

		locker = distributed.NewRedisLockManager(client, cfg.GameLockTTL, cfg.GameLockRetries)
		redisLimiter := ratelimit.NewRedisRateLimiter(client, "ratelimit:")
		apiLimiter = middleware.NewRedisLimiter(redisLimiter, cfg.APIRateLimit, time.Minute)
		authLimiter = middleware.NewRedisLimiter(redisLimiter, cfg.AuthRateLimit, time.Minute)
		healthChecks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("Redis connection established")
	} else {
		locker = distributed.NewKeyedMutex()

		apiRL := ratelimit.NewRateLimiter(cfg.APIRateLimit, float64(cfg.APIRateLimit)/60)
		defer apiRL.Stop()
		authRL := ratelimit.NewRateLimiter(cfg.AuthRateLimit, float64(cfg.AuthRateLimit)/60)
		defer authRL.Stop()
		apiLimiter = middleware.NewMemoryLimiter(apiRL)
		authLimiter = middleware.NewMemoryLimiter(authRL)
	}

	// Service 초기화
	jwtManager := jwt.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	userService := service.NewUserService(userRepo)
	gameService := service.NewGameService(gameRepo, userService, service.NewELOService(), locker)

	// 실시간 게임 Gateway
	registry := websocket.NewRegistry(logger.Named("registry"))
	gateway := websocket.NewGateway(registry, gameService, jwtManager, websocket.GatewayConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MessageTimeout: cfg.WSMessageTimeout,
		MessageBurst:   cfg.WSMessageBurst,
		MessageRate:    cfg.WSMessageRate,
	}, logger.Named("gateway"))

	router := api.SetupRouter(cfg, api.Dependencies{
		UserService:  userService,
		GameService:  gameService,
		Gateway:      gateway,
		JWTManager:   jwtManager,
		APILimiter:   apiLimiter,
		AuthLimiter:  authLimiter,
		HealthChecks: healthChecks,
	})

	// 서버 설정 (WebSocket 연결 때문에 WriteTimeout 없음)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 10초 타임아웃으로 종료
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
