package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/metabridge-api/internal/email"
	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/sms"
	"github.com/jwalitptl/metabridge-api/pkg/metrics"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

const channelTimeout = 10 * time.Second

// Outcome is the result of one delivery attempt on one channel.
type Outcome struct {
	Channel Channel
	Status  Status
	Err     error
}

// Report collects the per-channel outcomes of one dispatch.
type Report struct {
	Email Outcome
	SMS   Outcome
}

// Delivered reports whether at least one channel accepted the code.
func (r Report) Delivered() bool {
	return r.Email.Status == StatusDelivered || r.SMS.Status == StatusDelivered
}

// Dispatcher delivers one-time codes. Delivery is best effort: failures are reported, never returned as errors.
type Dispatcher interface {
	DispatchOTP(ctx context.Context, to model.Delivery, code string) Report
}

type service struct {
	emailSvc email.Service
	smsSvc   sms.Service
	metrics  *metrics.Metrics
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewService(emailSvc email.Service, smsSvc sms.Service, m *metrics.Metrics, logger zerolog.Logger) Dispatcher {
	return &service{
		emailSvc: emailSvc,
		smsSvc:   smsSvc,
		metrics:  m,
		timeout:  channelTimeout,
		logger:   logger.With().Str("component", "notification").Logger(),
	}
}

// DispatchOTP always attempts email, and SMS only when a phone number is on file.
func (s *service) DispatchOTP(ctx context.Context, to model.Delivery, code string) Report {
	report := Report{
		Email: s.attempt(ctx, ChannelEmail, func(ctx context.Context) error {
			return s.emailSvc.SendOTP(ctx, to.Email, code)
		}),
		SMS: Outcome{Channel: ChannelSMS, Status: StatusSkipped},
	}
	if to.Phone != "" {
		report.SMS = s.attempt(ctx, ChannelSMS, func(ctx context.Context) error {
			return s.smsSvc.SendOTP(ctx, to.Phone, code)
		})
	} else {
		s.record(report.SMS)
	}

	if !report.Delivered() {
		s.logger.Warn().Str("email", to.Email).Msg("otp could not be delivered on any channel")
	}
	return report
}

func (s *service) attempt(ctx context.Context, channel Channel, send func(context.Context) error) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome := Outcome{Channel: channel, Status: StatusDelivered}
	if err := send(ctx); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		s.logger.Error().Err(err).Str("channel", string(channel)).Msg("otp delivery failed")
	} else {
		s.logger.Debug().Str("channel", string(channel)).Msg("otp delivered")
	}
	s.record(outcome)
	return outcome
}

func (s *service) record(o Outcome) {
	if s.metrics != nil {
		s.metrics.Deliveries.WithLabelValues(string(o.Channel), string(o.Status)).Inc()
	}
}
