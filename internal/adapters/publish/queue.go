package publish

import (
	"context"
	"fmt"

	"github.com/okian/compliance-radar/pkg/logger"
)

// sender is a provider-specific queue client.
type sender interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// queuePublisher dispatches messages to a cloud queue provider.
type queuePublisher struct {
	id       string
	provider string
	sender   sender
}

func newQueuePublisher(ctx context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}
	if log == nil {
		log = logger.Nop()
	}

	var (
		s   sender
		err error
	)
	switch cfg.Queue.Provider {
	case ProviderAWSSQS:
		s, err = newSQSSender(ctx, cfg.Queue.SQS, log)
	case ProviderAWSSNS:
		s, err = newSNSSender(ctx, cfg.Queue.SNS, log)
	case ProviderGCP:
		s, err = newPubSubSender(ctx, cfg.Queue.GCP, log)
	case ProviderKafka:
		s, err = newKafkaSender(cfg.Queue.Kafka, log)
	default:
		err = fmt.Errorf("%w: queue provider %q", ErrUnsupported, cfg.Queue.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &queuePublisher{id: cfg.ID, provider: cfg.Queue.Provider, sender: s}, nil
}

func (p *queuePublisher) ID() string { return p.id }

func (p *queuePublisher) Publish(ctx context.Context, msg Message) error {
	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: queue provider %s: %w", ErrDelivery, p.provider, err)
	}
	return nil
}

func (p *queuePublisher) Close() error { return p.sender.Close() }
