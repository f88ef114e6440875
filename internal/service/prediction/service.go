package prediction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/metabridge-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/metabridge-api/pkg/errors"
	"github.com/jwalitptl/metabridge-api/pkg/logger"
	"github.com/jwalitptl/metabridge-api/pkg/metrics"
)

// maxResponseBytes caps how much of an upstream reply is buffered.
const maxResponseBytes = 1 << 20

// Model names one ML endpoint and how its failure is reported.
type Model struct {
	Name           string
	Path           string
	FailureMessage string
}

var (
	Heart = Model{
		Name:           "heart",
		Path:           "/predict_heart",
		FailureMessage: "Heart prediction failed",
	}
	Diabetes = Model{
		Name:           "diabetes",
		Path:           "/predict_diabetes",
		FailureMessage: "Diabetes prediction failed",
	}
)

var errUpstreamStatus = errors.New("unexpected upstream status")

// Result is the upstream reply, relayed untouched.
type Result struct {
	Body        []byte
	ContentType string
}

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxFailures    int
	BreakerTimeout time.Duration
}

// Service forwards a JSON body to the ML backend. The body is never inspected.
type Service interface {
	Predict(ctx context.Context, m Model, body []byte) (*Result, error)
}

type service struct {
	baseURL  string
	hc       *http.Client
	breakers map[string]*circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(cfg Config, m *metrics.Metrics, l zerolog.Logger) Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}
	l = l.With().Str("component", "ml_proxy").Logger()

	s := &service{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		hc: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		metrics:  m,
		logger:   l,
	}
	for _, model := range []Model{Heart, Diabetes} {
		s.breakers[model.Name] = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        model.Name,
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.BreakerTimeout,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				l.Warn().Str("model", name).Str("from", string(from)).Str("to", string(to)).
					Msg("circuit breaker state changed")
			},
		})
	}
	return s
}

func (s *service) Predict(ctx context.Context, m Model, body []byte) (result *Result, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Predictions.WithLabelValues(m.Name, metrics.Result(err)).Inc()
		s.metrics.PredictionLatency.WithLabelValues(m.Name).Observe(time.Since(start).Seconds())
	}()

	breaker, ok := s.breakers[m.Name]
	if !ok {
		return nil, apperrors.NewUpstream(m.FailureMessage, fmt.Errorf("unknown model %q", m.Name))
	}

	err = breaker.Execute(func() error {
		var callErr error
		result, callErr = s.call(ctx, m, body)
		return callErr
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("model", m.Name).
			Str("request_id", logger.RequestID(ctx)).
			Dur("duration", time.Since(start)).
			Msg("prediction request failed")
		return nil, apperrors.NewUpstream(m.FailureMessage, err)
	}

	s.logger.Debug().
		Str("model", m.Name).
		Str("request_id", logger.RequestID(ctx)).
		Dur("duration", time.Since(start)).
		Msg("prediction relayed")
	return result, nil
}

func (s *service) call(ctx context.Context, m Model, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+m.Path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if rid := logger.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return &Result{Body: data, ContentType: ct}, nil
}
