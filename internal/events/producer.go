package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Producer is an asynchronous Kafka publisher. Messages flow through a
// buffered inbox drained by a single goroutine; a full inbox drops the
// message rather than blocking a request.
type Producer struct {
	writer  *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	logger  zerolog.Logger
}

// NewProducer creates a producer for the given brokers. The topic is carried
// per-message so one producer serves all notification topics.
func NewProducer(brokers []string, buf int, logger zerolog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// Start launches the drain loop. On ctx cancellation the remaining inbox is
// flushed before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						_ = p.writer.Close()
						return
					}
				}
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.writer.Close()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.writer.WriteMessages(context.Background(), m); err != nil {
		p.logger.Error().Err(err).Str("topic", m.Topic).Msg("failed to publish message")
	}
}

// Publish enqueues a JSON-encoded payload. Never blocks: if the inbox is full
// the message is dropped and logged.
func (p *Producer) Publish(topic string, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("failed to encode payload")
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	select {
	case p.inbox <- msg:
	default:
		p.logger.Warn().Str("topic", topic).Msg("event inbox full, dropping message")
	}
}

// Close stops accepting messages and flushes the remaining inbox.
func (p *Producer) Close() { close(p.inbox) }

// WaitClosed blocks until the drain loop has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
