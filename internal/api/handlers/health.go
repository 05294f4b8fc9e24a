package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 외부 의존성 (DB, Redis) 연결 확인
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 함수를 Pinger로 사용
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler 이름별 의존성 체크
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck 의존성 하나라도 실패하면 503
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"service":      "chessedu-backend",
		"dependencies": deps,
	})
}
