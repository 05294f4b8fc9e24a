package handlers

import (
	"net/http"

	"github.com/chessedu/chessedu-backend/internal/models"
	"github.com/chessedu/chessedu-backend/internal/service"
	jwtutil "github.com/chessedu/chessedu-backend/pkg/jwt"
	"github.com/chessedu/chessedu-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService *service.UserService
	jwtManager  *jwtutil.JWTManager
}

func NewAuthHandler(userService *service.UserService, jwtManager *jwtutil.JWTManager) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string      `json:"username" binding:"required,min=3,max=50"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     models.Role `json:"role"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login 로그인
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
	logger.Info("User logged in", "userId", user.ID)
}

// Register 회원가입. 관리자 역할은 자가 가입 불가
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if req.Role != "" && req.Role.AtLeast(models.RoleSchoolAdmin) {
		respondError(c, service.NewAuthorizationError("Administrative roles cannot be self-assigned"))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
	logger.Info("User registered", "userId", user.ID, "role", user.Role)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.jwtManager.Generate(user.ID, string(user.Role))
	if err != nil {
		logger.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
			"code":  "INTERNAL_SERVER_ERROR",
		})
		return
	}

	c.JSON(status, AuthResponse{Token: token, User: user})
}
