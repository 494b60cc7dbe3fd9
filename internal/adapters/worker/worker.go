// Package worker fetches configured sources through a bounded pool.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/okian/compliance-radar/pkg/logger"
)

const (
	defaultSize    = 4
	defaultTimeout = 20 * time.Second
)

// Fetcher reads one source. Implementations report failures as an empty
// slice; feed.Reader satisfies it.
type Fetcher interface {
	Read(ctx context.Context, src model.Source, timeout time.Duration, maxItems int) []model.NewsItem
}

// Pool runs one fetch task per source with at most size in flight.
type Pool struct {
	fetcher  Fetcher
	size     int
	timeout  time.Duration
	maxItems int
	log      logger.Logger
}

// NewPool creates a new fetch pool.
func NewPool(fetcher Fetcher, opts ...Option) *Pool {
	p := &Pool{
		fetcher: fetcher,
		size:    defaultSize,
		timeout: defaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches every source and returns the items concatenated in source
// order, regardless of which fetch finished first. Each source gets its own
// timeout; one slow or panicking fetch leaves the others untouched.
func (p *Pool) Run(ctx context.Context, sources []model.Source) []model.NewsItem {
	if len(sources) == 0 {
		return []model.NewsItem{}
	}

	q := newTaskQueue(len(sources))
	for i, src := range sources {
		if !q.Enqueue(ctx, Task{Index: i, Source: src}) {
			p.log.Warn(ctx, "source not scheduled", logger.String("source", src.Name))
		}
	}
	q.Close()

	workers := min(p.size, len(sources))
	results := make([][]model.NewsItem, len(sources))

	var wg sync.WaitGroup
	wg.Add(workers)
	for id := range workers {
		go func() {
			defer wg.Done()
			for t := range q.Dequeue() {
				results[t.Index] = p.process(ctx, id, t)
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]model.NewsItem, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	p.log.Debug(ctx, "fetch pool drained",
		logger.Int("sources", len(sources)),
		logger.Int("workers", workers),
		logger.Int("items", total),
	)
	return out
}

func (p *Pool) process(ctx context.Context, id int, t Task) (items []model.NewsItem) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error(ctx, "fetch task panicked",
				logger.Int("worker_id", id),
				logger.String("source", t.Source.Name),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
			items = []model.NewsItem{}
		}
	}()
	items = p.fetcher.Read(ctx, t.Source, p.timeout, p.maxItems)
	if items == nil {
		items = []model.NewsItem{}
	}
	return items
}
