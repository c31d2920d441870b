package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// GatewayEvent is the shape the card processor's webhook relay publishes to
// Kafka. Reference ties the event back to a payment record. On refund events
// Amount is the processor's cumulative refunded-to-date total for the charge,
// not a per-refund delta.
type GatewayEvent struct {
	Type      string  `json:"type"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount,omitempty"`
}

// Gateway event types, mirroring the processor's webhook vocabulary.
const (
	GatewayEventSucceeded = "payment_intent.succeeded"
	GatewayEventFailed    = "payment_intent.payment_failed"
	GatewayEventRefunded  = "charge.refunded"
)

// ConsumerConfig configures the gateway event consumer group.
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	Topic            string
	SessionTimeoutMs int
	HeartbeatMs      int
	OffsetOldest     bool
}

// DefaultConsumerConfig returns the default consumer configuration.
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "courtly-settlement-workers",
		Topic:            "gateway-events",
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		OffsetOldest:     true,
	}
}

// GatewayConsumer pulls processor events off Kafka and applies them through
// the settlement service. The service's compare-and-swap state writes make
// at-least-once delivery safe.
type GatewayConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	service       Service
	cancel        context.CancelFunc
}

func NewGatewayConsumer(config *ConsumerConfig, service Service) (*GatewayConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &GatewayConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		service:       service,
	}, nil
}

// Start runs the consumer loop until the context is cancelled or Stop is
// called.
func (c *GatewayConsumer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		for err := range c.consumerGroup.Errors() {
			log.Printf("gateway consumer error: %v", err)
		}
	}()

	go func() {
		handler := &gatewayHandler{service: c.service}
		for {
			select {
			case <-runCtx.Done():
				return
			default:
				if err := c.consumerGroup.Consume(runCtx, []string{c.config.Topic}, handler); err != nil {
					log.Printf("gateway consumer: %v", err)
					time.Sleep(time.Second)
				}
			}
		}
	}()

	log.Printf("gateway event consumer started on topic %s", c.config.Topic)
}

// Stop shuts the consumer group down.
func (c *GatewayConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.consumerGroup.Close()
}

type gatewayHandler struct {
	service Service
}

func (h *gatewayHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *gatewayHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *gatewayHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				log.Printf("gateway event at %s/%d/%d failed: %v",
					message.Topic, message.Partition, message.Offset, err)
			}
			// Mark regardless: replays of transient failures come back through
			// the processor's own retry, and state writes are idempotent.
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *gatewayHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event GatewayEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("malformed gateway event: %w", err)
	}
	if event.Reference == "" {
		return errors.New("gateway event without reference")
	}

	switch event.Type {
	case GatewayEventSucceeded:
		return h.service.RecordGatewaySuccess(ctx, event.Reference)
	case GatewayEventFailed:
		return h.service.RecordGatewayFailure(ctx, event.Reference)
	case GatewayEventRefunded:
		return h.service.RecordRefundConfirmed(ctx, event.Reference, event.Amount)
	default:
		log.Printf("ignoring unknown gateway event type %q", event.Type)
		return nil
	}
}
