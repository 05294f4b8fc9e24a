package websocket

import (
	"encoding/json"

	"github.com/chessedu/chessedu-backend/internal/models"
)

// MessageType 메시지 타입
type MessageType string

// 클라이언트 → 서버
const (
	TypeMove       MessageType = "MOVE"
	TypeResign     MessageType = "RESIGN"
	TypeOfferDraw  MessageType = "OFFER_DRAW"
	TypeAcceptDraw MessageType = "ACCEPT_DRAW"
	TypeRejectDraw MessageType = "REJECT_DRAW"
	TypeJoin       MessageType = "JOIN"
	TypeLeave      MessageType = "LEAVE"
)

// 서버 → 클라이언트 (MOVE는 양방향)
const (
	TypeGameState    MessageType = "GAME_STATE"
	TypeGameEnd      MessageType = "GAME_END"
	TypeDrawOffer    MessageType = "DRAW_OFFER"
	TypeDrawRejected MessageType = "DRAW_REJECTED"
	TypeError        MessageType = "ERROR"
)

// 게임 종료 사유
const (
	ReasonResignation = "resignation"
	ReasonAgreement   = "agreement"
	ReasonEnded       = "ended"
)

// InboundMessage 클라이언트가 보내는 메시지
type InboundMessage struct {
	Type      MessageType     `json:"type"`
	GameID    string          `json:"gameId"`
	UserID    string          `json:"userId"`
	Move      string          `json:"move,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// OutboundMessage 서버가 보내는 메시지. Data 또는 Message 중 하나
type OutboundMessage struct {
	Type    MessageType `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// MovePayload MOVE 브로드캐스트
type MovePayload struct {
	GameID string            `json:"gameId"`
	Move   string            `json:"move"`
	Moves  models.MoveList   `json:"moves"`
	Status models.GameStatus `json:"status"`
}

// GameEndPayload GAME_END 브로드캐스트
type GameEndPayload struct {
	GameID string             `json:"gameId"`
	Status models.GameStatus  `json:"status"`
	Result *models.GameResult `json:"result,omitempty"`
	Reason string             `json:"reason"`
}

// DrawPayload DRAW_OFFER / DRAW_REJECTED
type DrawPayload struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

func encode(msg OutboundMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func errorMessage(text string) OutboundMessage {
	return OutboundMessage{Type: TypeError, Message: text}
}

func gameEndMessage(game *models.Game, reason string) OutboundMessage {
	return OutboundMessage{
		Type: TypeGameEnd,
		Data: GameEndPayload{
			GameID: game.ID,
			Status: game.Status,
			Result: game.Result,
			Reason: reason,
		},
	}
}

func moveMessage(game *models.Game, move string) OutboundMessage {
	return OutboundMessage{
		Type: TypeMove,
		Data: MovePayload{
			GameID: game.ID,
			Move:   move,
			Moves:  game.Moves,
			Status: game.Status,
		},
	}
}
