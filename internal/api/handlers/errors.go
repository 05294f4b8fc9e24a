package handlers

import (
	"net/http"

	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/chessedu/chessedu-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError 도메인 오류 종류를 HTTP 상태와 코드로 매핑. 그 외 오류는 500
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)

	var status int
	switch kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindAuthorization:
		status = http.StatusForbidden
	case service.KindAuthentication:
		status = http.StatusUnauthorized
	default:
		logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "INTERNAL_SERVER_ERROR",
		})
		return
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  string(kind),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"code":  string(service.KindValidation),
	})
}
