package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/freshflower-auth/config"
	"github.com/oksasatya/freshflower-auth/pkg/helpers"
	tpl "github.com/oksasatya/freshflower-auth/pkg/mailer/templates"
)

type sentMail struct {
	to, subject, text, html string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

// ackRecorder stands in for the AMQP channel behind a delivery.
type ackRecorder struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func welcomeJob(t *testing.T) []byte {
	t.Helper()
	cfg := &config.Config{AppName: "FreshFlower", CompanyName: "FreshFlower Ltd", LoginURL: "https://app.example/login"}
	b, err := json.Marshal(EmailJob{
		To:       "rose@example.com",
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(cfg, "Rose", "rose@example.com"),
	})
	require.NoError(t, err)
	return b
}

func TestPrepare_Template(t *testing.T) {
	msg, err := Prepare(context.Background(), EmailJob{
		To:       "rose@example.com",
		Template: "WELCOME",
		Data:     map[string]any{"Name": "Rose", "AppName": "FreshFlower"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "rose@example.com", msg.To)
	assert.Equal(t, "Welcome to FreshFlower, Rose", msg.Subject)
	assert.Contains(t, msg.Text, "account for rose@example.com is ready")
	assert.Contains(t, msg.HTML, "<strong>rose@example.com</strong>")
}

func TestPrepare_Raw(t *testing.T) {
	msg, err := Prepare(context.Background(), EmailJob{To: "a@example.com", Subject: "Hi", Text: "body"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Message{To: "a@example.com", Subject: "Hi", Text: "body"}, msg)
}

func TestPrepare_Invalid(t *testing.T) {
	_, err := Prepare(context.Background(), EmailJob{Subject: "Hi", Text: "body"}, nil)
	assert.Error(t, err)

	_, err = Prepare(context.Background(), EmailJob{To: "a@example.com", Subject: "Hi"}, nil)
	assert.ErrorIs(t, err, ErrEmptyJob)

	lookups := &countingResolver{}
	_, err = Prepare(context.Background(), EmailJob{
		To:       "a@example.com",
		Template: "password_reset",
		Data:     map[string]any{"IP": "203.0.113.9"},
	}, lookups)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Zero(t, lookups.calls, "unknown templates must not trigger a geo lookup")
}

type countingResolver struct{ calls int }

func (c *countingResolver) Lookup(context.Context, string) (tpl.Geo, error) {
	c.calls++
	return tpl.Geo{}, nil
}

func TestHandle_Outcomes(t *testing.T) {
	ok := &fakeSender{}
	w := &Worker{Sender: ok, Logger: helpers.NopLogger()}

	assert.Equal(t, Ack, w.Handle(context.Background(), welcomeJob(t)))
	require.Len(t, ok.sent, 1)
	assert.Equal(t, "rose@example.com", ok.sent[0].to)
	assert.Contains(t, ok.sent[0].text, "https://app.example/login")

	assert.Equal(t, Drop, w.Handle(context.Background(), []byte("{not json")))
	assert.Equal(t, Drop, w.Handle(context.Background(), []byte(`{"to":"a@example.com"}`)))

	failing := &Worker{Sender: &fakeSender{err: errors.New("mailgun 503")}, Logger: helpers.NopLogger()}
	assert.Equal(t, Requeue, failing.Handle(context.Background(), welcomeJob(t)))
}

func TestRun_AcksAndNacks(t *testing.T) {
	sender := &fakeSender{}
	w := &Worker{Sender: sender, Logger: helpers.NopLogger(), SendTimeout: time.Second}
	acks := &ackRecorder{}

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: welcomeJob(t)}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("garbage")}
	close(deliveries)

	w.Run(context.Background(), deliveries)

	assert.Equal(t, []uint64{1}, acks.acked)
	assert.Equal(t, []uint64{2}, acks.nacked)
	assert.Equal(t, []bool{false}, acks.requeue)
	assert.Len(t, sender.sent, 1)
}

func TestRun_StopsOnContext(t *testing.T) {
	w := &Worker{Sender: &fakeSender{}, Logger: helpers.NopLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx, make(chan amqp.Delivery))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
