package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrNotConfigured = errors.New("sms channel not configured")

const (
	otpBody        = "Your MetaBridge OTP is %s"
	requestTimeout = 10 * time.Second
)

type Service interface {
	SendOTP(ctx context.Context, to string, code string) error
	Send(ctx context.Context, to string, body string) error
}

// Config holds Twilio credentials
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type twilioService struct {
	api  messageCreator
	from string
}

func NewTwilioService(cfg Config) Service {
	httpClient := &client.Client{Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken)}
	httpClient.SetAccountSid(cfg.AccountSID)
	httpClient.SetTimeout(requestTimeout)

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Client: httpClient})
	return &twilioService{api: rest.Api, from: cfg.From}
}

func (s *twilioService) SendOTP(ctx context.Context, to string, code string) error {
	return s.Send(ctx, to, fmt.Sprintf(otpBody, code))
}

func (s *twilioService) Send(ctx context.Context, to string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	done := make(chan error, 1)
	go func() {
		_, err := s.api.CreateMessage(params)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send sms: %w", err)
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

func (disabledService) Send(context.Context, string, string) error { return ErrNotConfigured }
