package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by who is at fault and how the API reports them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindNotFound
	KindUnauthorized
	KindRateLimited
	KindUpstream
	KindInternal
)

// Code identifies a specific failure within a kind.
type Code string

const (
	CodeValidation         Code = "ValidationError"
	CodeDuplicateUser      Code = "DuplicateUser"
	CodeUserNotFound       Code = "UserNotFound"
	CodeInvalidCredentials Code = "InvalidCredentials"
	CodeOtpNotRequested    Code = "OtpNotRequested"
	CodeOtpExpired         Code = "OtpExpired"
	CodeInvalidOtp         Code = "InvalidOtp"
	CodeUnauthorized       Code = "Unauthorized"
	CodeRateLimited        Code = "RateLimited"
	CodeUpstream           Code = "UpstreamError"
	CodeInternal           Code = "InternalError"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"-"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`

	status int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithStatus overrides the HTTP status derived from the error kind.
func (e *AppError) WithStatus(status int) *AppError {
	cp := *e
	cp.status = status
	return &cp
}

// StatusCode maps the error to an HTTP status.
func (e *AppError) StatusCode() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation, KindAuth, KindNotFound:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is checks. Messages are filled in by the constructors.
var (
	ErrValidation         = &AppError{Kind: KindValidation, Code: CodeValidation}
	ErrDuplicateUser      = &AppError{Kind: KindValidation, Code: CodeDuplicateUser}
	ErrUserNotFound       = &AppError{Kind: KindNotFound, Code: CodeUserNotFound}
	ErrInvalidCredentials = &AppError{Kind: KindAuth, Code: CodeInvalidCredentials}
	ErrOtpNotRequested    = &AppError{Kind: KindAuth, Code: CodeOtpNotRequested}
	ErrOtpExpired         = &AppError{Kind: KindAuth, Code: CodeOtpExpired}
	ErrInvalidOtp         = &AppError{Kind: KindAuth, Code: CodeInvalidOtp}
	ErrUnauthorized       = &AppError{Kind: KindUnauthorized, Code: CodeUnauthorized}
	ErrRateLimited        = &AppError{Kind: KindRateLimited, Code: CodeRateLimited}
	ErrUpstream           = &AppError{Kind: KindUpstream, Code: CodeUpstream}
	ErrInternal           = &AppError{Kind: KindInternal, Code: CodeInternal}
)

// New builds an error from a sentinel with a user-facing message.
func New(sentinel *AppError, message string) *AppError {
	return &AppError{Kind: sentinel.Kind, Code: sentinel.Code, Message: message}
}

// Wrap is New with an underlying cause.
func Wrap(sentinel *AppError, message string, err error) *AppError {
	return &AppError{Kind: sentinel.Kind, Code: sentinel.Code, Message: message, Err: err}
}

func NewValidation(message string, err error) *AppError {
	return Wrap(ErrValidation, message, err)
}

func NewUnauthorized(message string) *AppError {
	return New(ErrUnauthorized, message)
}

func NewUpstream(message string, err error) *AppError {
	return Wrap(ErrUpstream, message, err)
}

func NewInternal(err error) *AppError {
	return Wrap(ErrInternal, "Server error", err)
}

// As extracts an AppError from err. Anything else is reported as internal.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
