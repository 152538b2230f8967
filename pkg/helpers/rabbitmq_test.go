package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRabbitPublisher_Closed(t *testing.T) {
	p := &RabbitPublisher{Queue: "emails"}
	err := p.PublishJSON(context.Background(), map[string]string{"to": "a@example.com"})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestRabbitPublisher_UnencodableBody(t *testing.T) {
	p := &RabbitPublisher{Queue: "emails"}
	err := p.PublishJSON(context.Background(), make(chan int))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPublisherClosed)
}

func TestRabbitPublisher_CloseIsSafe(t *testing.T) {
	var nilPub *RabbitPublisher
	assert.NotPanics(t, func() { nilPub.Close() })

	p := &RabbitPublisher{Queue: "emails"}
	assert.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
}

func TestDialQueue_BadURL(t *testing.T) {
	_, _, err := DialQueue("not-an-amqp-url", "emails")
	assert.Error(t, err)
}
