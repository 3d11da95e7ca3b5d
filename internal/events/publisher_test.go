package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iv91/kidslearning/internal/config"
	"github.com/Iv91/kidslearning/internal/models"
)

type capturePublisher struct {
	topic    string
	messages []*message.Message
	err      error
}

func (c *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	c.topic = topic
	c.messages = append(c.messages, msgs...)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaPublisherMessage(t *testing.T) {
	capture := &capturePublisher{}
	p := newMessagePublisher(capture, "quiz-attempts", discardLogger())

	event := NewAttemptCompleted(&models.Attempt{ID: "a1", QuizID: "5", Score: 3, MaxScore: 3, Passed: true})
	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "quiz-attempts", capture.topic)
	require.Len(t, capture.messages, 1)

	msg := capture.messages[0]
	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, "attempt.completed", msg.Metadata.Get("event_type"))
	assert.Equal(t, "quiz-player", msg.Metadata.Get("source"))

	var decoded struct {
		Type string         `json:"type"`
		Data models.Attempt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "attempt.completed", decoded.Type)
	assert.Equal(t, 3, decoded.Data.Score)
}

func TestKafkaPublisherError(t *testing.T) {
	p := newMessagePublisher(&capturePublisher{err: errors.New("broker down")}, "t", discardLogger())

	err := p.Publish(context.Background(), NewAttemptCompleted(&models.Attempt{ID: "a1"}))
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(discardLogger())

	require.NoError(t, p.Publish(context.Background(), NewAttemptCompleted(&models.Attempt{ID: "a1"})))
	require.NoError(t, p.Publish(context.Background(), NewAttemptCompleted(&models.Attempt{ID: "a2"})))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventAttemptCompleted, events[1].Type)
	assert.NoError(t, p.Close())
}

func TestNewFromConfig(t *testing.T) {
	p, err := NewFromConfig(config.EventsConfig{Enabled: false, Publisher: "kafka"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, p)

	p, err = NewFromConfig(config.EventsConfig{Enabled: true, Publisher: "carrier-pigeon"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, p)
}
