package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/metabridge-api/internal/handler"
	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/service/account"
)

// Handler serves the unified users routes under /auth.
type Handler struct {
	service *account.Service
}

func NewHandler(service *account.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/auth")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !handler.Bind(c, &req) {
		return
	}

	if _, err := h.service.Register(c.Request.Context(), &req); err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewMessageResponse("User registered successfully!"))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Existing user login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}
