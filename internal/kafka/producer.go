package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/GTDGit/groupbuy_api/internal/events"
)

// Producer publishes lifecycle events to a Kafka topic. Publish only queues;
// a single goroutine started by Start performs the writes.
type Producer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}, buf)
}

func newProducer(w messageWriter, buf int) *Producer {
	if buf < 1 {
		buf = 1
	}
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled, then flushes what is
// still queued and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	defer close(p.closeCh)
	for {
		select {
		case <-ctx.Done():
			p.drain()
			if err := p.w.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close kafka writer")
			}
			return
		case m := <-p.inbox:
			p.write(context.Background(), m)
		}
	}
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(context.Background(), m)
		default:
			return
		}
	}
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		log.Error().Err(err).Str("key", string(m.Key)).Msg("Failed to publish event to kafka")
	}
}

// Publish implements events.Sink. Events are dropped when the buffer is full.
func (p *Producer) Publish(e *events.Event) {
	value, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal kafka event")
		return
	}
	m := kafka.Message{
		Key:     []byte(e.ID),
		Value:   value,
		Time:    e.Timestamp,
		Headers: []kafka.Header{{Key: "event", Value: []byte(e.Event)}},
	}
	select {
	case p.inbox <- m:
	default:
		log.Warn().Str("event", string(e.Event)).Str("id", e.ID).Msg("Kafka buffer full, dropping event")
	}
}

// WaitClosed blocks until Start has returned.
func (p *Producer) WaitClosed() { <-p.closeCh }
