package handler

import (
	"github.com/jwalitptl/metabridge-api/pkg/validator"
)

// MessageResponse is the body of calls whose only result is a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed call except the ML proxy.
type ErrorResponse struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error,omitempty"`
	Fields  []validator.FieldError `json:"fields,omitempty"`
}

// ProxyErrorResponse is the ML proxy failure body.
type ProxyErrorResponse struct {
	Error string `json:"error"`
}

func NewMessageResponse(message string) *MessageResponse {
	return &MessageResponse{Message: message}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Message: message}
}
