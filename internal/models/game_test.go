package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveList_TurnParity(t *testing.T) {
	moves := MoveList{}
	for n := 0; n < 9; n++ {
		want := White
		if n%2 == 1 {
			want = Black
		}
		assert.Equal(t, want, moves.Turn(), "move count %d", n)
		moves = moves.Append("m")
	}
}

func TestParseMoves(t *testing.T) {
	assert.Equal(t, 0, ParseMoves("").Len())
	assert.Equal(t, 0, ParseMoves("   ").Len())
	assert.Equal(t, MoveList{"e2e4", "e7e5"}, ParseMoves("e2e4  e7e5 "))
	assert.Equal(t, "e2e4 e7e5", ParseMoves("e2e4 e7e5").String())
}

func TestMoveList_AppendDoesNotAlias(t *testing.T) {
	base := make(MoveList, 1, 4)
	base[0] = "e2e4"

	a := base.Append("e7e5")
	b := base.Append("c7c5")

	assert.Equal(t, "e2e4 e7e5", a.String())
	assert.Equal(t, "e2e4 c7c5", b.String())
	assert.Equal(t, 1, base.Len())
}

func TestMoveList_JSONIsSpaceSeparated(t *testing.T) {
	data, err := json.Marshal(GameState{GameID: "g1", Moves: MoveList{"e2e4", "e7e5"}, Status: GameStatusActive})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"moves":"e2e4 e7e5"`)
	assert.NotContains(t, string(data), `"result"`)

	var decoded GameState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, MoveList{"e2e4", "e7e5"}, decoded.Moves)
}

func TestMoveList_Scan(t *testing.T) {
	var m MoveList
	require.NoError(t, m.Scan([]byte("d2d4 d7d5")))
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Scan(nil))
	assert.Equal(t, 0, m.Len())

	assert.Error(t, m.Scan(42))
}

func TestValidMoveToken(t *testing.T) {
	assert.True(t, ValidMoveToken("e2e4"))
	assert.True(t, ValidMoveToken("O-O-O"))
	assert.False(t, ValidMoveToken(""))
	assert.False(t, ValidMoveToken("e2 e4"))
	assert.False(t, ValidMoveToken("e2e4\n"))
}

func TestGameStatus(t *testing.T) {
	assert.True(t, GameStatusPending.AcceptsMoves())
	assert.True(t, GameStatusActive.AcceptsMoves())
	assert.False(t, GameStatusCompleted.AcceptsMoves())
	assert.False(t, GameStatusAbandoned.AcceptsMoves())

	assert.True(t, GameStatusCompleted.IsTerminal())
	assert.True(t, GameStatusAbandoned.IsTerminal())
	assert.False(t, GameStatus("FINISHED").Valid())
}

func TestGame_ColorOf(t *testing.T) {
	g := &Game{WhiteID: "w", BlackID: "b"}

	c, ok := g.ColorOf("w")
	assert.True(t, ok)
	assert.Equal(t, White, c)
	assert.Equal(t, GameResultBlackWin, WinFor(c.Opponent()))

	_, ok = g.ColorOf("spectator")
	assert.False(t, ok)
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleCoach.AtLeast(RoleCoach))
	assert.True(t, RoleNationalAdmin.AtLeast(RoleCoach))
	assert.False(t, RoleStudent.AtLeast(RoleCoach))
	assert.False(t, Role("GUEST").AtLeast(RoleStudent))
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 0, ClampRating(-40))
	assert.Equal(t, 3000, ClampRating(3100))
	assert.Equal(t, 1500, ClampRating(1500))
}
