package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/compliance-radar/pkg/logger"
)

const snippetLimit = 256

// httpPublisher posts the payload to a webhook.
type httpPublisher struct {
	id     string
	cfg    HTTPConfig
	client *resty.Client
	log    logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	if log == nil {
		log = logger.Nop()
	}
	client := resty.New().SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)
	return &httpPublisher{id: cfg.ID, cfg: *cfg.HTTP, client: client, log: log}, nil
}

func (p *httpPublisher) ID() string { return p.id }

func (p *httpPublisher) Publish(ctx context.Context, msg Message) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Run-ID", msg.RunID).
		SetHeaders(p.cfg.Headers).
		SetBody(msg.Body).
		Execute(p.cfg.Method, p.cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrDelivery, p.cfg.Method, p.cfg.URL, err)
	}
	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > snippetLimit {
			body = body[:snippetLimit] + "..."
		}
		return fmt.Errorf("%w: %s returned status %d body: %s", ErrDelivery, p.cfg.URL, resp.StatusCode(), body)
	}
	p.log.Debug(ctx, "webhook delivered payload", logger.String("url", p.cfg.URL), logger.Int("status", resp.StatusCode()))
	return nil
}

func (p *httpPublisher) Close() error { return nil }
