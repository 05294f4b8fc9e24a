package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasRoom room 존재 여부
func hasRoom(r *Registry, gameID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[gameID]
	return ok
}

func newTestClient(buffer int) *Client {
	return &Client{send: make(chan []byte, buffer)}
}

// drain 버퍼에 쌓인 메시지 수. 채널이 닫혔으면 closed=true
func drain(c *Client) (n int, closed bool) {
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return n, true
			}
			n++
		default:
			return n, false
		}
	}
}

func TestRegistry_JoinAndLeave(t *testing.T) {
	r := NewRegistry(nil)
	c := newTestClient(4)

	r.Join("g1", c, "u1")
	assert.Equal(t, 1, r.CountConnections("g1"))
	assert.True(t, hasRoom(r, "g1"))

	assert.True(t, r.Leave(c))
	assert.Equal(t, 0, r.CountConnections("g1"))
	assert.False(t, hasRoom(r, "g1"), "empty room must be deleted")

	_, closed := drain(c)
	assert.True(t, closed)

	// 두 번째 Leave는 no-op
	assert.False(t, r.Leave(c))
}

func TestRegistry_BroadcastExcludes(t *testing.T) {
	r := NewRegistry(nil)
	a, b, other := newTestClient(4), newTestClient(4), newTestClient(4)
	r.Join("g1", a, "u1")
	r.Join("g1", b, "u2")
	r.Join("g2", other, "u3")

	delivered := r.Broadcast("g1", []byte("hello"), a)
	assert.Equal(t, 1, delivered)

	n, _ := drain(a)
	assert.Equal(t, 0, n)
	n, _ = drain(b)
	assert.Equal(t, 1, n)
	n, _ = drain(other)
	assert.Equal(t, 0, n, "broadcast must stay inside the room")

	assert.Equal(t, 2, r.Broadcast("g1", []byte("all"), nil))
	assert.Equal(t, 0, r.Broadcast("missing", []byte("x"), nil))
}

func TestRegistry_SendToUser(t *testing.T) {
	r := NewRegistry(nil)
	tab1, tab2, opponent := newTestClient(4), newTestClient(4), newTestClient(4)
	r.Join("g1", tab1, "u1")
	r.Join("g1", tab2, "u1")
	r.Join("g1", opponent, "u2")

	assert.Equal(t, 2, r.SendToUser("g1", "u1", []byte("hi")))

	n, _ := drain(tab1)
	assert.Equal(t, 1, n)
	n, _ = drain(tab2)
	assert.Equal(t, 1, n)
	n, _ = drain(opponent)
	assert.Equal(t, 0, n)
}

func TestRegistry_CloseRoom(t *testing.T) {
	r := NewRegistry(nil)
	a, b, other := newTestClient(4), newTestClient(4), newTestClient(4)
	r.Join("g1", a, "u1")
	r.Join("g1", b, "u2")
	r.Join("g2", other, "u3")

	r.Broadcast("g1", []byte("GAME_END"), nil)
	assert.Equal(t, 2, r.CloseRoom("g1"))
	assert.False(t, hasRoom(r, "g1"))
	assert.True(t, hasRoom(r, "g2"))

	// 닫기 전에 넣은 메시지는 남아있고 이후 채널이 닫힘
	n, closed := drain(a)
	assert.Equal(t, 1, n)
	assert.True(t, closed)

	// 소켓 종료 후 Leave 호출이 와도 안전
	assert.False(t, r.Leave(b))
	assert.Equal(t, 0, r.CloseRoom("g1"))
}

func TestRegistry_EvictsSlowClient(t *testing.T) {
	r := NewRegistry(nil)
	slow, fast := newTestClient(1), newTestClient(8)
	r.Join("g1", slow, "u1")
	r.Join("g1", fast, "u2")

	require.Equal(t, 2, r.Broadcast("g1", []byte("1"), nil))
	// slow의 버퍼는 가득 참 → 제거
	assert.Equal(t, 1, r.Broadcast("g1", []byte("2"), nil))
	assert.Equal(t, 1, r.CountConnections("g1"))

	n, closed := drain(slow)
	assert.Equal(t, 1, n)
	assert.True(t, closed)

	assert.False(t, r.Send(slow, []byte("3")))
	assert.True(t, r.Send(fast, []byte("3")))
}

func TestRegistry_JoinMovesBetweenRooms(t *testing.T) {
	r := NewRegistry(nil)
	c := newTestClient(4)

	r.Join("g1", c, "u1")
	r.Join("g2", c, "u1")

	assert.False(t, hasRoom(r, "g1"))
	assert.Equal(t, 1, r.CountConnections("g2"))
}
