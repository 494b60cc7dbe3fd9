// Package publish delivers a run's payload to configured external sinks.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/compliance-radar/pkg/logger"
	"github.com/okian/compliance-radar/pkg/metrics"
)

// Message is what every publisher delivers: the encoded payload plus the
// identifiers sinks use as attributes or headers.
type Message struct {
	RunID       string
	GeneratedAt string
	Body        []byte
}

// Publisher delivers messages to one sink.
type Publisher interface {
	ID() string
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg Config, log logger.Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with the given builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry wires the queue and HTTP publishers.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeQueue: newQueuePublisher,
		TypeHTTP:  newHTTPPublisher,
	})
}

// Register associates a builder with a publisher type.
func (r *Registry) Register(typ string, b Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ == "" || b == nil {
		return
	}
	r.mu.Lock()
	r.builders[typ] = b
	r.mu.Unlock()
}

// Build returns the publisher for cfg.
func (r *Registry) Build(ctx context.Context, cfg Config, log logger.Logger) (Publisher, error) {
	r.mu.RLock()
	b := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()
	if b == nil {
		return nil, fmt.Errorf("%w: no publisher registered for type %q", ErrUnsupported, cfg.Type)
	}
	return b(ctx, cfg, log)
}

// BuildAll builds every config. An entry that cannot be built is logged and
// skipped so the remaining sinks still receive the payload.
func (r *Registry) BuildAll(ctx context.Context, cfgs []Config, log logger.Logger) []Publisher {
	if log == nil {
		log = logger.Nop()
	}
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := r.Build(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "publisher setup failed", logger.String("publisher", cfg.ID), logger.Error(err))
			metrics.RecordPublishFailure(cfg.ID)
			continue
		}
		pubs = append(pubs, p)
	}
	return pubs
}

// Dispatch sends msg to every publisher. Failures are logged and counted;
// the joined error reports all of them.
func Dispatch(ctx context.Context, pubs []Publisher, msg Message, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	var errs []error
	for _, p := range pubs {
		if err := p.Publish(ctx, msg); err != nil {
			log.Error(ctx, "publish failed", logger.String("publisher", p.ID()), logger.Error(err))
			metrics.RecordPublishFailure(p.ID())
			errs = append(errs, fmt.Errorf("%s: %w", p.ID(), err))
			continue
		}
		log.Info(ctx, "payload published", logger.String("publisher", p.ID()), logger.String("run_id", msg.RunID))
	}
	return errors.Join(errs...)
}

// CloseAll closes every publisher, joining errors.
func CloseAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
