package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/pkg/metrics"
)

type fakeChannel struct {
	to    []string
	code  []string
	err   error
	stall bool
}

func (f *fakeChannel) SendOTP(ctx context.Context, to, code string) error {
	f.to = append(f.to, to)
	f.code = append(f.code, code)
	if f.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeChannel) SendCustom(context.Context, string, string, string) error { return f.err }

func (f *fakeChannel) Send(context.Context, string, string) error { return f.err }

func TestDispatchOTP_BothChannels(t *testing.T) {
	mail, text := &fakeChannel{}, &fakeChannel{}
	m := metrics.NewNop()
	d := NewService(mail, text, m, zerolog.Nop())

	report := d.DispatchOTP(context.Background(), model.Delivery{Email: "pat@example.com", Phone: "+15550001111"}, "123456")

	assert.Equal(t, StatusDelivered, report.Email.Status)
	assert.Equal(t, StatusDelivered, report.SMS.Status)
	assert.Equal(t, []string{"pat@example.com"}, mail.to)
	assert.Equal(t, []string{"+15550001111"}, text.to)
	assert.Equal(t, []string{"123456"}, text.code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Deliveries.WithLabelValues("sms", "delivered")))
}

func TestDispatchOTP_SkipsSMSWithoutPhone(t *testing.T) {
	mail, text := &fakeChannel{}, &fakeChannel{}
	m := metrics.NewNop()
	report := NewService(mail, text, m, zerolog.Nop()).
		DispatchOTP(context.Background(), model.Delivery{Email: "doc@example.com"}, "654321")

	assert.Equal(t, StatusDelivered, report.Email.Status)
	assert.Equal(t, StatusSkipped, report.SMS.Status)
	assert.Empty(t, text.to)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Deliveries.WithLabelValues("sms", "skipped")))
}

func TestDispatchOTP_ChannelFailuresAreReportedNotReturned(t *testing.T) {
	mail := &fakeChannel{err: errors.New("smtp down")}
	text := &fakeChannel{}
	report := NewService(mail, text, metrics.NewNop(), zerolog.Nop()).
		DispatchOTP(context.Background(), model.Delivery{Email: "pat@example.com", Phone: "+15550001111"}, "123456")

	assert.Equal(t, StatusFailed, report.Email.Status)
	require.Error(t, report.Email.Err)
	assert.Equal(t, StatusDelivered, report.SMS.Status, "sms is attempted even when email fails")
	assert.True(t, report.Delivered())
}

func TestDispatchOTP_AllChannelsFail(t *testing.T) {
	mail := &fakeChannel{err: errors.New("smtp down")}
	text := &fakeChannel{err: errors.New("twilio down")}
	report := NewService(mail, text, nil, zerolog.Nop()).
		DispatchOTP(context.Background(), model.Delivery{Email: "pat@example.com", Phone: "+15550001111"}, "123456")

	assert.False(t, report.Delivered())
	assert.Equal(t, StatusFailed, report.SMS.Status)
}

func TestDispatchOTP_ChannelTimeoutBoundsEachSend(t *testing.T) {
	mail, text := &fakeChannel{stall: true}, &fakeChannel{stall: true}
	d := NewService(mail, text, metrics.NewNop(), zerolog.Nop()).(*service)
	d.timeout = 30 * time.Millisecond

	start := time.Now()
	report := d.DispatchOTP(context.Background(), model.Delivery{Email: "pat@example.com", Phone: "+15550001111"}, "123456")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusFailed, report.Email.Status)
	assert.ErrorIs(t, report.Email.Err, context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, report.SMS.Status, "sms gets a fresh deadline after email times out")
	assert.ErrorIs(t, report.SMS.Err, context.DeadlineExceeded)
}
