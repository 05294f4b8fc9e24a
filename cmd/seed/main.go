package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/chessedu/chessedu-backend/internal/config"
	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/repository"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/pkg/database"
	"github.com/chessedu/chessedu-backend/pkg/distributed"
)

// 로컬 개발용 데모 계정
var demoUsers = []service.RegisterInput{
	{Username: "coach", Email: "coach@chessedu.local", Role: models.RoleCoach},
	{Username: "alice", Email: "alice@chessedu.local", Role: models.RoleStudent},
	{Username: "bob", Email: "bob@chessedu.local", Role: models.RoleStudent},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set in environment")
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "chessedu-demo"
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	fmt.Println("✅ Connected to database successfully!")

	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo)
	gameService := service.NewGameService(
		repository.NewGameRepository(db),
		userService,
		service.NewELOService(),
		distributed.NewKeyedMutex(),
	)

	ids := make([]string, 0, len(demoUsers))
	for _, in := range demoUsers {
		in.Password = password
		user, err := userService.Register(ctx, in)
		switch {
		case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrUsernameTaken):
			user, err = userRepo.FindByUsername(ctx, in.Username)
			if err != nil || user == nil {
				log.Fatalf("Failed to load existing user %s: %v", in.Username, err)
			}
			fmt.Printf("  - %s already exists\n", in.Username)
		case err != nil:
			log.Fatalf("Failed to register %s: %v", in.Username, err)
		default:
			fmt.Printf("  - %s registered (%s)\n", user.Username, user.Role)
		}
		ids = append(ids, user.ID)
	}

	// alice(백) vs bob(흑) 데모 대국
	game, err := gameService.CreateGame(ctx, service.CreateGameInput{
		WhiteID:     ids[1],
		BlackID:     ids[2],
		TimeControl: "10+5",
	})
	if err != nil {
		log.Fatal("Failed to create demo game:", err)
	}

	fmt.Printf("✅ Demo game %s created (%s)\n", game.ID, game.Status)
}
