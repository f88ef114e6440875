package prediction

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/metabridge-api/internal/handler"
	"github.com/jwalitptl/metabridge-api/internal/service/prediction"
	apperrors "github.com/jwalitptl/metabridge-api/pkg/errors"
)

// Handler forwards ML requests. Bodies are relayed as raw bytes in both directions.
type Handler struct {
	svc prediction.Service
}

func NewHandler(svc prediction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/heart", h.forward(prediction.Heart))
	r.POST("/diabetes", h.forward(prediction.Diabetes))
}

func (h *Handler) forward(m prediction.Model) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			h.fail(c, m, apperrors.NewUpstream(m.FailureMessage, err))
			return
		}

		res, err := h.svc.Predict(c.Request.Context(), m, body)
		if err != nil {
			h.fail(c, m, err)
			return
		}

		c.Data(http.StatusOK, res.ContentType, res.Body)
	}
}

// fail writes the proxy error body itself and records err for logging only.
func (h *Handler) fail(c *gin.Context, m prediction.Model, err error) {
	handler.Fail(c, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, handler.ProxyErrorResponse{Error: m.FailureMessage})
}
