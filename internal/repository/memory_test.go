package repository

import (
	"context"
	"testing"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGameRepository_UpdateIsConditional(t *testing.T) {
	repo := NewMemoryGameRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Game{WhiteID: "w", BlackID: "b", Status: models.GameStatusPending, TimeControl: "10+0"})
	require.NoError(t, err)

	first, _ := repo.FindByID(ctx, created.ID)
	second, _ := repo.FindByID(ctx, created.ID)

	first.Moves = first.Moves.Append("e2e4")
	first.Status = models.GameStatusActive
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 1, first.Version)

	// second는 오래된 버전을 들고 있으므로 실패해야 함
	second.Moves = second.Moves.Append("d2d4")
	assert.ErrorIs(t, repo.Update(ctx, second), ErrConflict)

	stored, _ := repo.FindByID(ctx, created.ID)
	assert.Equal(t, "e2e4", stored.Moves.String())
}

func TestMemoryGameRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryGameRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Game{WhiteID: "w", BlackID: "b", Status: models.GameStatusPending})
	require.NoError(t, err)

	created.Moves = append(created.Moves, "e2e4")
	created.Status = models.GameStatusCompleted

	stored, _ := repo.FindByID(ctx, created.ID)
	assert.Equal(t, 0, stored.Moves.Len())
	assert.Equal(t, models.GameStatusPending, stored.Status)
}

func TestMemoryGameRepository_FindMany(t *testing.T) {
	repo := NewMemoryGameRepository()
	ctx := context.Background()
	tournament := "t1"

	_, _ = repo.Create(ctx, &models.Game{WhiteID: "a", BlackID: "b", Status: models.GameStatusPending, TournamentID: &tournament})
	_, _ = repo.Create(ctx, &models.Game{WhiteID: "c", BlackID: "a", Status: models.GameStatusActive})
	_, _ = repo.Create(ctx, &models.Game{WhiteID: "c", BlackID: "d", Status: models.GameStatusActive})

	byUser, _ := repo.FindMany(ctx, models.GameFilters{UserID: "a"})
	assert.Len(t, byUser, 2)

	byTournament, _ := repo.FindMany(ctx, models.GameFilters{TournamentID: "t1"})
	assert.Len(t, byTournament, 1)

	active, _ := repo.FindActive(ctx)
	assert.Len(t, active, 2)
}

func TestMemoryUserRepository(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{Username: "kasparov", Email: "g@k.com", Rating: 1200})
	require.NoError(t, err)

	byEmail, _ := repo.FindByEmail(ctx, "g@k.com")
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, repo.UpdateRating(ctx, u.ID, 1216))
	byID, _ := repo.FindByID(ctx, u.ID)
	assert.Equal(t, 1216, byID.Rating)

	assert.ErrorIs(t, repo.UpdateRating(ctx, "ghost", 1000), ErrNotFound)

	missing, err := repo.FindByUsername(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
