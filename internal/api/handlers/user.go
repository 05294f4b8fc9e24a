package handlers

import (
	"net/http"

	"github.com/chessedu/chessedu-backend/internal/api/middleware"
	"github.com/chessedu/chessedu-backend/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetCurrentUser 현재 사용자 정보 조회
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
