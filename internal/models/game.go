package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

type GameStatus string

const (
	GameStatusPending   GameStatus = "PENDING"
	GameStatusActive    GameStatus = "ACTIVE"
	GameStatusCompleted GameStatus = "COMPLETED"
	GameStatusAbandoned GameStatus = "ABANDONED"
)

// Valid 정의된 상태인지 확인
func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusPending, GameStatusActive, GameStatusCompleted, GameStatusAbandoned:
		return true
	}
	return false
}

// IsTerminal COMPLETED, ABANDONED 상태는 더 이상 변경 불가
func (s GameStatus) IsTerminal() bool {
	return s == GameStatusCompleted || s == GameStatusAbandoned
}

// AcceptsMoves PENDING, ACTIVE 상태에서만 수를 둘 수 있음
func (s GameStatus) AcceptsMoves() bool {
	return s == GameStatusPending || s == GameStatusActive
}

type GameResult string

const (
	GameResultWhiteWin  GameResult = "WHITE_WIN"
	GameResultBlackWin  GameResult = "BLACK_WIN"
	GameResultDraw      GameResult = "DRAW"
	GameResultStalemate GameResult = "STALEMATE"
)

// Valid 정의된 결과인지 확인
func (r GameResult) Valid() bool {
	switch r {
	case GameResultWhiteWin, GameResultBlackWin, GameResultDraw, GameResultStalemate:
		return true
	}
	return false
}

// Color 차례를 나타내는 색
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent 상대 색
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// WinFor 해당 색의 승리 결과
func WinFor(c Color) GameResult {
	if c == White {
		return GameResultWhiteWin
	}
	return GameResultBlackWin
}

// MoveList 수순. 저장/전송 시에는 공백으로 구분된 문자열로 변환된다.
type MoveList []string

// ParseMoves 공백 구분 문자열을 MoveList로 변환
func ParseMoves(s string) MoveList {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return MoveList{}
	}
	return MoveList(fields)
}

// ValidMoveToken 수 토큰은 비어있지 않고 공백을 포함하지 않아야 함 (체스 규칙 검증은 하지 않음)
func ValidMoveToken(move string) bool {
	if move == "" {
		return false
	}
	return strings.IndexFunc(move, unicode.IsSpace) < 0
}

func (m MoveList) Len() int { return len(m) }

// Turn 수순 개수의 짝/홀로 차례 결정 (짝수 = 백, 홀수 = 흑)
func (m MoveList) Turn() Color {
	if len(m)%2 == 0 {
		return White
	}
	return Black
}

// Append 새 수를 추가한 복사본 반환
func (m MoveList) Append(move string) MoveList {
	out := make(MoveList, len(m), len(m)+1)
	copy(out, m)
	return append(out, move)
}

func (m MoveList) String() string {
	return strings.Join(m, " ")
}

func (m MoveList) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MoveList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ParseMoves(s)
	return nil
}

// Value database/sql 저장용
func (m MoveList) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan database/sql 조회용
func (m *MoveList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = MoveList{}
	case string:
		*m = ParseMoves(v)
	case []byte:
		*m = ParseMoves(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MoveList", src)
	}
	return nil
}

type Game struct {
	ID           string      `json:"id" db:"id"`
	WhiteID      string      `json:"whiteId" db:"white_id"`
	BlackID      string      `json:"blackId" db:"black_id"`
	Moves        MoveList    `json:"moves" db:"moves"`
	Status       GameStatus  `json:"status" db:"status"`
	Result       *GameResult `json:"result,omitempty" db:"result"`
	TimeControl  string      `json:"timeControl" db:"time_control"`
	TournamentID *string     `json:"tournamentId,omitempty" db:"tournament_id"`
	Version      int         `json:"-" db:"version"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time   `json:"updatedAt" db:"updated_at"`
}

// ColorOf 사용자의 색. 플레이어가 아니면 false
func (g *Game) ColorOf(userID string) (Color, bool) {
	switch userID {
	case g.WhiteID:
		return White, true
	case g.BlackID:
		return Black, true
	}
	return "", false
}

// PlayerFor 해당 색의 플레이어 ID
func (g *Game) PlayerFor(c Color) string {
	if c == White {
		return g.WhiteID
	}
	return g.BlackID
}

// IsPlayer 게임 참가자인지 확인
func (g *Game) IsPlayer(userID string) bool {
	_, ok := g.ColorOf(userID)
	return ok
}

// Clone 얕은 필드 복사 (수순, 포인터 필드 포함)
func (g *Game) Clone() *Game {
	c := *g
	c.Moves = append(MoveList{}, g.Moves...)
	if g.Result != nil {
		r := *g.Result
		c.Result = &r
	}
	if g.TournamentID != nil {
		t := *g.TournamentID
		c.TournamentID = &t
	}
	return &c
}

// GameState 실시간 채널의 첫 메시지로 전송되는 게임 상태
type GameState struct {
	GameID      string      `json:"gameId"`
	WhiteID     string      `json:"whiteId"`
	BlackID     string      `json:"blackId"`
	Moves       MoveList    `json:"moves"`
	Status      GameStatus  `json:"status"`
	Result      *GameResult `json:"result,omitempty"`
	TimeControl string      `json:"timeControl"`
}

func (g *Game) State() GameState {
	return GameState{
		GameID:      g.ID,
		WhiteID:     g.WhiteID,
		BlackID:     g.BlackID,
		Moves:       g.Moves,
		Status:      g.Status,
		Result:      g.Result,
		TimeControl: g.TimeControl,
	}
}

type GameFilters struct {
	UserID       string
	Status       *GameStatus
	TournamentID string
}

type CreateGameRequest struct {
	WhiteID      string  `json:"whiteId" binding:"required"`
	BlackID      string  `json:"blackId" binding:"required"`
	TimeControl  string  `json:"timeControl" binding:"required"`
	TournamentID *string `json:"tournamentId"`
}

type MakeMoveRequest struct {
	Move string `json:"move" binding:"required"`
}

type EndGameRequest struct {
	Result GameResult `json:"result" binding:"required"`
}
