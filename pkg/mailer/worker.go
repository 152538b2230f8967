package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	tpl "github.com/oksasatya/freshflower-auth/pkg/mailer/templates"
)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota
	Requeue         // transient failure, try again later
	Drop            // the message can never succeed
)

var (
	ErrEmptyJob        = errors.New("email job has neither template nor subject with body")
	ErrUnknownTemplate = errors.New("unknown email template")
)

// Message is a rendered email ready for a Sender.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Prepare renders job into a Message. Template jobs get recipient defaults
// and, when resolver is set, a localized time and location.
func Prepare(ctx context.Context, job EmailJob, resolver tpl.GeoResolver) (Message, error) {
	if strings.TrimSpace(job.To) == "" {
		return Message{}, errors.New("email job has no recipient")
	}
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return Message{}, ErrEmptyJob
		}
		return Message{To: job.To, Subject: job.Subject, Text: job.Text, HTML: job.HTML}, nil
	}

	name := strings.ToLower(job.Template)
	if !tpl.Known(name) {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, job.Template)
	}
	data := ensureRecipient(job)
	tpl.Localize(ctx, resolver, data)
	subject, text, html, err := tpl.Render(name, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: job.To, Subject: subject, Text: text, HTML: html}, nil
}

func ensureRecipient(job EmailJob) map[string]any {
	data := make(map[string]any, len(job.Data)+2)
	for k, v := range job.Data {
		data[k] = v
	}
	if v, ok := data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		data["Email"] = job.To
	}
	if v, ok := data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		data["RecipientEmail"] = job.To
	}
	return data
}

// Worker turns queued EmailJobs into sent emails.
type Worker struct {
	Sender      Sender
	Resolver    tpl.GeoResolver
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

// Handle processes one raw queue message.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		return Drop
	}
	msg, err := Prepare(ctx, job, w.Resolver)
	if err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Warn("render email failed")
		return Drop
	}

	timeout := w.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := w.Sender.Send(c, msg.To, msg.Subject, msg.Text, msg.HTML); err != nil {
		w.Logger.WithError(err).WithField("to", msg.To).Warn("send email failed")
		return Requeue
	}
	w.Logger.WithFields(logrus.Fields{"to": msg.To, "template": job.Template}).Info("email sent")
	return Ack
}

// Run consumes deliveries until the channel closes or ctx is done.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			switch w.Handle(ctx, d.Body) {
			case Ack:
				_ = d.Ack(false)
			case Requeue:
				_ = d.Nack(false, true)
			default:
				_ = d.Nack(false, false)
			}
		}
	}
}
