package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/metabridge-api/internal/handler"
	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/service/auth"
	"github.com/jwalitptl/metabridge-api/pkg/errors"
)

const otpSentMessage = "OTP sent to your email/phone"

// Handler serves the signup, login and verify-otp routes of one user type.
type Handler struct {
	svc *auth.Service
	ut  model.UserType
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc, ut: svc.UserType()}
}

func (h *Handler) UserType() string {
	return h.ut.Name
}

// RegisterRoutes mounts the handlers under /<user type>. requireAuth guards /me.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAuth ...gin.HandlerFunc) {
	group := r.Group("/" + h.ut.Name)
	{
		for _, path := range h.ut.SignupPaths {
			group.POST(path, h.Signup)
		}
		group.POST("/login", h.Login)
		group.POST("/verify-otp", h.VerifyOTP)
		group.GET("/me", append(requireAuth, h.Me)...)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	req := h.ut.NewSignupRequest()
	if !handler.Bind(c, req) {
		return
	}

	session, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      h.ut.RegisteredMessage,
		h.ut.RecordKey: session.Profile,
		"token":        session.Token,
	})
}

// Login sends an OTP. Delivery failures are logged by the service and never change the reply.
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req) {
		return
	}

	if _, err := h.svc.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse(otpSentMessage))
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if !handler.Bind(c, &req) {
		return
	}

	session, err := h.svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		h.ut.RecordKey: session.Profile,
		"token":        session.Token,
	})
}

// Me returns the stored profile of the token holder.
func (h *Handler) Me(c *gin.Context) {
	id := c.GetInt64(handler.ContextUserID)
	if id == 0 {
		handler.Fail(c, errors.NewUnauthorized("Unauthorized"))
		return
	}

	profile, err := h.svc.Profile(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{h.ut.RecordKey: profile})
}
