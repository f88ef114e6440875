package sms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func TestTwilioService_SendOTP(t *testing.T) {
	fake := &fakeCreator{}
	svc := &twilioService{api: fake, from: "+15550009999"}

	require.NoError(t, svc.SendOTP(context.Background(), "+15550001111", "987654"))
	require.Len(t, fake.params, 1)

	p := fake.params[0]
	require.NotNil(t, p.To)
	require.NotNil(t, p.From)
	require.NotNil(t, p.Body)
	assert.Equal(t, "+15550001111", *p.To)
	assert.Equal(t, "+15550009999", *p.From)
	assert.Equal(t, "Your MetaBridge OTP is 987654", *p.Body)
}

func TestTwilioService_ProviderError(t *testing.T) {
	svc := &twilioService{api: &fakeCreator{err: errors.New("21211 invalid 'To'")}, from: "+1"}
	assert.ErrorContains(t, svc.SendOTP(context.Background(), "bad", "1"), "21211")
}

type stalledCreator struct {
	release chan struct{}
}

func (s *stalledCreator) CreateMessage(*twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	<-s.release
	return &twilioApi.ApiV2010Message{}, nil
}

func TestTwilioService_ReturnsAtDeadline(t *testing.T) {
	stalled := &stalledCreator{release: make(chan struct{})}
	defer close(stalled.release)
	svc := &twilioService{api: stalled, from: "+15550009999"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := svc.SendOTP(ctx, "+15550001111", "987654")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestNewTwilioService_BuildsAPIClient(t *testing.T) {
	svc := NewTwilioService(Config{AccountSID: "AC123", AuthToken: "token", From: "+1"})
	require.IsType(t, &twilioService{}, svc)
	assert.NotNil(t, svc.(*twilioService).api)
}

func TestDisabledService(t *testing.T) {
	assert.ErrorIs(t, NewDisabledService().SendOTP(context.Background(), "+1", "1"), ErrNotConfigured)
}
