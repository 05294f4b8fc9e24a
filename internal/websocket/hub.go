package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// membership 연결 → {userID, gameID} 역방향 매핑
type membership struct {
	userID string
	gameID string
}

// Registry 게임별 WebSocket 연결(room) 관리.
// 하나의 mutex가 두 맵을 보호하며 잠금 구간 안에서는 블로킹하지 않는다
// (전송은 버퍼 채널에 대한 non-blocking enqueue).
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]membership
	logger  *zap.Logger
}

// NewRegistry Registry 생성
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:   make(map[string]map[*Client]struct{}),
		members: make(map[*Client]membership),
		logger:  logger,
	}
}

// Join 연결을 게임 room에 추가. room이 없으면 생성
func (r *Registry) Join(gameID string, client *Client, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 다른 room에 있던 연결이면 옮김
	if m, ok := r.members[client]; ok && m.gameID != gameID {
		r.detachLocked(client, m.gameID)
	}

	room, ok := r.rooms[gameID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[gameID] = room
	}
	room[client] = struct{}{}
	r.members[client] = membership{userID: userID, gameID: gameID}

	r.logger.Info("WebSocket client joined game",
		zap.String("gameId", gameID),
		zap.String("userId", userID),
		zap.Int("roomSize", len(room)))
}

// Leave 연결 제거 후 send 채널을 닫음. 등록되지 않은 연결이면 false
func (r *Registry) Leave(client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[client]
	if !ok {
		return false
	}
	r.removeLocked(client)

	r.logger.Info("WebSocket client left game",
		zap.String("gameId", m.gameID),
		zap.String("userId", m.userID))
	return true
}

// Broadcast room의 모든 연결(exclude 제외)에 전송. 전달된 연결 수 반환
func (r *Registry) Broadcast(gameID string, msg []byte, exclude *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for client := range r.rooms[gameID] {
		if client == exclude {
			continue
		}
		if r.deliverLocked(client, msg) {
			delivered++
		}
	}
	return delivered
}

// SendToUser room 안에서 해당 사용자의 모든 연결(여러 탭/기기)에 전송
func (r *Registry) SendToUser(gameID, userID string, msg []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for client := range r.rooms[gameID] {
		if r.members[client].userID != userID {
			continue
		}
		if r.deliverLocked(client, msg) {
			delivered++
		}
	}
	return delivered
}

// Send 단일 연결에 전송. 등록되지 않았거나 버퍼가 가득 차면 false
func (r *Registry) Send(client *Client, msg []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[client]; !ok {
		return false
	}
	return r.deliverLocked(client, msg)
}

// CountConnections room의 연결 수
func (r *Registry) CountConnections(gameID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[gameID])
}

// CloseRoom room의 모든 연결을 강제로 닫고 제거. 닫은 연결 수 반환
func (r *Registry) CloseRoom(gameID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[gameID]
	closed := 0
	for client := range room {
		r.removeLocked(client)
		closed++
	}

	if closed > 0 {
		r.logger.Info("Closed game room",
			zap.String("gameId", gameID),
			zap.Int("connections", closed))
	}
	return closed
}

// deliverLocked non-blocking 전송. 버퍼가 가득 찬 느린 연결은 제거
func (r *Registry) deliverLocked(client *Client, msg []byte) bool {
	select {
	case client.send <- msg:
		return true
	default:
		m := r.members[client]
		r.logger.Warn("Client send buffer full, evicting",
			zap.String("gameId", m.gameID),
			zap.String("userId", m.userID))
		r.removeLocked(client)
		return false
	}
}

// removeLocked 매핑 제거 + send 채널 닫기 (writePump가 close frame 전송)
func (r *Registry) removeLocked(client *Client) {
	m, ok := r.members[client]
	if !ok {
		return
	}
	r.detachLocked(client, m.gameID)
	delete(r.members, client)
	close(client.send)
}

// detachLocked room에서만 제거. 빈 room은 삭제
func (r *Registry) detachLocked(client *Client, gameID string) {
	room, ok := r.rooms[gameID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(r.rooms, gameID)
	}
}
