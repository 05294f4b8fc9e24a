package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 허용 origin 목록 기반 CORS 미들웨어. 목록이 비었거나 "*"이면 모든 origin 허용 (credential 없이)
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = allowedOrigins

	return cors.New(cfg)
}
