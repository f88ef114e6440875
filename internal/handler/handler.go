package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/metabridge-api/pkg/errors"
	"github.com/jwalitptl/metabridge-api/pkg/validator"
)

// Context keys set by the auth middleware.
const (
	ContextClaims   = "claims"
	ContextUserID   = "userID"
	ContextEmail    = "userEmail"
	ContextUserType = "userType"
)

// Bind decodes the JSON body into req. A failure is recorded on the context as a validation error.
func Bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperrors.NewValidation(validator.Describe(err), err))
		return false
	}
	return true
}

// Fail records err for the error middleware to render.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
