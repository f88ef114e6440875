package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("email channel not configured")

const (
	otpSubject = "Your MetaBridge OTP Code"
	otpBody    = "Your OTP code is %s. It is valid for 5 minutes."
)

type Service interface {
	SendOTP(ctx context.Context, to string, code string) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	sender sender
	from   string
}

// NewSMTPService sends through an SMTP relay. A fresh connection is dialed per message.
func NewSMTPService(cfg Config) Service {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &smtpService{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

func (s *smtpService) SendOTP(ctx context.Context, to string, code string) error {
	return s.SendCustom(ctx, to, otpSubject, fmt.Sprintf(otpBody, code))
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	// gomail has no context support; stop waiting once ctx ends.
	done := make(chan error, 1)
	go func() { done <- s.sender.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type disabledService struct{}

// NewDisabledService rejects every send with ErrNotConfigured.
func NewDisabledService() Service { return disabledService{} }

func (disabledService) SendOTP(context.Context, string, string) error { return ErrNotConfigured }

func (disabledService) SendCustom(context.Context, string, string, string) error {
	return ErrNotConfigured
}
