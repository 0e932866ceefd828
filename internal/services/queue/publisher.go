package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const eventQueueName = "convert_job_events"

// AMQPPublisher sends job events to a RabbitMQ topic exchange. The routing
// key is "jobs.<status>".
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

func NewAMQPPublisher(rabbitmqURL, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := channel.QueueDeclare(eventQueueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := channel.QueueBind(eventQueueName, "jobs.#", exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event models.JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange,                   // exchange
		"jobs."+string(event.Status), // routing key
		false,                        // mandatory
		false,                        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    eventTime(event),
			MessageId:    event.JobID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	return nil
}

// HealthCheck reports the state of the RabbitMQ connection.
func (p *AMQPPublisher) HealthCheck() string {
	if p.conn == nil || p.conn.IsClosed() {
		return "unhealthy: connection closed"
	}
	if p.channel == nil {
		return "unhealthy: channel not available"
	}
	return "healthy"
}

func (p *AMQPPublisher) Stats() (map[string]interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	queueInfo, err := p.channel.QueueInspect(eventQueueName)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return map[string]interface{}{
		"messages":  queueInfo.Messages,
		"consumers": queueInfo.Consumers,
		"name":      queueInfo.Name,
	}, nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// LogPublisher writes job events to the logger when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event models.JobEvent) error {
	p.logger.Debug("Job event",
		zap.String("batch_id", event.BatchID),
		zap.String("job_id", event.JobID),
		zap.String("status", string(event.Status)),
		zap.Int("progress", event.Progress),
		zap.String("message", event.Message),
	)
	return nil
}

// Hub fans job events out to in-process subscribers of a batch.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan models.JobEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan models.JobEvent]struct{})}
}

// Subscribe returns a channel of events for batchID and a cancel func that
// must be called to unsubscribe.
func (h *Hub) Subscribe(batchID string) (<-chan models.JobEvent, func()) {
	ch := make(chan models.JobEvent, 64)

	h.mu.Lock()
	if h.subs[batchID] == nil {
		h.subs[batchID] = make(map[chan models.JobEvent]struct{})
	}
	h.subs[batchID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[batchID], ch)
			if len(h.subs[batchID]) == 0 {
				delete(h.subs, batchID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish never blocks; slow subscribers miss intermediate events.
func (h *Hub) Publish(_ context.Context, event models.JobEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[event.BatchID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// MultiPublisher publishes to every publisher and returns the first error.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event models.JobEvent) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns the stats of the first member that exposes them.
func (m MultiPublisher) Stats() (map[string]interface{}, error) {
	for _, p := range m {
		if sp, ok := p.(interface {
			Stats() (map[string]interface{}, error)
		}); ok {
			return sp.Stats()
		}
	}
	return nil, fmt.Errorf("no broker configured")
}

func eventTime(e models.JobEvent) time.Time {
	if e.Timestamp.IsZero() {
		return time.Now()
	}
	return e.Timestamp
}
