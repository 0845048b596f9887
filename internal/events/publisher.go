// Package events publishes audio-ready notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/metrics"
)

const TypeAudioReady = "message.audio_ready"

// AudioReady announces that a chat message now has an audio clip.
type AudioReady struct {
	ThreadID   string    `json:"thread_id"`
	ConnSID    string    `json:"ws_conn_sid"`
	MessageID  string    `json:"message_id"`
	CreatedAt  int64     `json:"created_at"`
	ObjectPath string    `json:"object_path"`
	PublicURL  string    `json:"public_url,omitempty"`
	ProducedAt time.Time `json:"produced_at"`
}

// Publisher writes events to a single topic. With no brokers configured it only logs.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func New(cfg config.KafkaConfig, m *metrics.Metrics) *Publisher {
	logger := logging.WithComponent("events")

	if len(cfg.Brokers) == 0 {
		logger.Info().Msg("kafka disabled, audio-ready events are logged only")
		return &Publisher{topic: cfg.Topic, metrics: m, log: logger}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("kafka publisher initialized")

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		metrics: m,
		log:     logger,
	}
}

// PublishAudioReady is keyed by thread id so events of one thread stay ordered.
func (p *Publisher) PublishAudioReady(ctx context.Context, ev AudioReady) error {
	if ev.ProducedAt.IsZero() {
		ev.ProducedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.log.Debug().
		Str("topic", p.topic).
		Str("message_id", ev.MessageID).
		RawJSON("payload", payload).
		Msg("publishing event")

	if !p.enabled {
		p.metrics.RecordEvent(nil)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(ev.ThreadID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(TypeAudioReady)},
		},
	}

	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.RecordEvent(err)
	if err != nil {
		return fmt.Errorf("write to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
