package publish

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/okian/compliance-radar/pkg/logger"
)

// topicPublisher publishes one message and waits for its server ID.
type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) (string, error)
}

// gcpTopic adapts *pubsub.Topic to topicPublisher.
type gcpTopic struct {
	topic *pubsub.Topic
}

func (t gcpTopic) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	return t.topic.Publish(ctx, msg).Get(ctx)
}

type pubsubSender struct {
	topic topicPublisher
	close func() error
	log   logger.Logger
}

func newPubSubSender(ctx context.Context, cfg *GCPConfig, log logger.Logger) (sender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp configuration is missing")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	t := gcpTopic{topic: client.Topic(cfg.Topic)}
	return &pubsubSender{
		topic: t,
		close: func() error {
			t.topic.Stop()
			return client.Close()
		},
		log: log,
	}, nil
}

func (s *pubsubSender) Send(ctx context.Context, msg Message) error {
	id, err := s.topic.Publish(ctx, &pubsub.Message{
		Data:       msg.Body,
		Attributes: map[string]string{attrRunID: msg.RunID},
	})
	if err != nil {
		return fmt.Errorf("send message to pubsub: %w", err)
	}
	s.log.Debug(ctx, "pubsub delivered payload", logger.String("message_id", id))
	return nil
}

func (s *pubsubSender) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
