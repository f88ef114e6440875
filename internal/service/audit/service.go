package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/metabridge-api/pkg/logger"
)

// Audited actions
const (
	ActionSignup      = "signup"
	ActionLogin       = "login"
	ActionVerifyOTP   = "verify_otp"
	ActionRegister    = "register"
	ActionDirectLogin = "direct_login"
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one security-relevant auth action.
type Event struct {
	Action   string
	UserType string
	UserID   int64
	Email    string
	Outcome  string
	Reason   string
}

// Service writes audit events as structured log lines on a dedicated logger.
type Service struct {
	logger zerolog.Logger
}

func NewService(l zerolog.Logger) *Service {
	return &Service{logger: l.With().Str("log_type", "audit").Logger()}
}

// Log records e. OTP codes and passwords must never be put in an Event.
func (s *Service) Log(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	evt := s.logger.Info()
	if e.Outcome == OutcomeFailure {
		evt = s.logger.Warn()
	}
	evt = evt.Str("action", e.Action).
		Str("user_type", e.UserType).
		Str("email", e.Email).
		Str("outcome", e.Outcome)
	if e.UserID != 0 {
		evt = evt.Int64("user_id", e.UserID)
	}
	if e.Reason != "" {
		evt = evt.Str("reason", e.Reason)
	}
	if rid := logger.RequestID(ctx); rid != "" {
		evt = evt.Str("request_id", rid)
	}
	evt.Msg("auth event")
}
