// Package service coordinates one pipeline pass: collect items from the
// configured sources or the offline fixture, classify, filter, deduplicate
// and rank them.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/compliance-radar/internal/adapters/feed"
	"github.com/okian/compliance-radar/internal/adapters/fixture"
	workerpool "github.com/okian/compliance-radar/internal/adapters/worker"
	"github.com/okian/compliance-radar/internal/domain/filter"
	"github.com/okian/compliance-radar/internal/domain/matching"
	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/okian/compliance-radar/internal/domain/ranking"
	"github.com/okian/compliance-radar/pkg/logger"
	"github.com/okian/compliance-radar/pkg/metrics"
)

const (
	defaultWorkerCount = 4
	defaultTimeout     = 20 * time.Second
	defaultFixtureDir  = "sample_data"
)

// RunConfig is the input of one pass.
type RunConfig struct {
	Sources           []model.Source
	Topics            model.TopicsConfig
	Offline           bool
	Limit             int           // zero keeps every item
	Timeout           time.Duration // per source
	MaxItemsPerSource int           // zero keeps every entry
}

// Stats counts items at each stage.
type Stats struct {
	Raw          int
	Relevant     int
	Deduplicated int
	Emitted      int
}

// Result is the outcome of one pass. Items are ranked.
type Result struct {
	RunID       string
	GeneratedAt time.Time
	Items       []model.NewsItem
	Topics      model.TopicsConfig
	Stats       Stats
}

// Service runs pipeline passes. A Service holds no per-run state and may be
// reused.
type Service struct {
	reader      workerpool.Fetcher
	workerCount int
	fixtureDir  string
	now         func() time.Time
	logger      logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReader replaces the feed reader used in live mode.
func WithReader(r workerpool.Fetcher) Option {
	return func(s *Service) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithWorkerCount sets how many sources are fetched concurrently.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithFixtureDir sets the directory holding the offline fixture.
func WithFixtureDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.fixtureDir = dir
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: defaultWorkerCount,
		fixtureDir:  defaultFixtureDir,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reader == nil {
		s.reader = feed.NewReader(feed.WithLogger(s.logger.Named("feed")))
	}
	return s
}

// Run performs one pass. Only a missing or unreadable offline fixture fails
// the run; unreachable sources just contribute nothing.
func (s *Service) Run(ctx context.Context, cfg RunConfig) (Result, error) {
	start := s.now()
	runID := uuid.NewString()
	log := s.logger

	log.Info(ctx, "pipeline started",
		logger.String("run_id", runID),
		logger.Bool("offline", cfg.Offline),
		logger.Int("sources", len(cfg.Sources)),
	)

	raw, err := s.collect(ctx, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("collect items: %w", err)
	}

	hints := hintsBySource(cfg.Sources)
	matcher := matching.New(cfg.Topics)
	classified := make([]model.NewsItem, 0, len(raw))
	for _, it := range raw {
		classified = append(classified, matcher.Classify(it, hints[it.Source]))
	}

	relevant := filter.Relevant(classified)
	unique := filter.Deduplicate(relevant)
	ranked := ranking.Rank(unique, cfg.Limit)

	finished := s.now()
	stats := Stats{
		Raw:          len(raw),
		Relevant:     len(relevant),
		Deduplicated: len(unique),
		Emitted:      len(ranked),
	}
	metrics.RecordStageCounts(len(classified), stats.Relevant, stats.Relevant-stats.Deduplicated, stats.Emitted)
	metrics.RecordRun(finished.Sub(start).Seconds(), finished.Unix())

	log.Info(ctx, "pipeline finished",
		logger.String("run_id", runID),
		logger.Int("raw", stats.Raw),
		logger.Int("relevant", stats.Relevant),
		logger.Int("unique", stats.Deduplicated),
		logger.Int("emitted", stats.Emitted),
		logger.Duration("took", finished.Sub(start)),
	)

	return Result{
		RunID:       runID,
		GeneratedAt: finished,
		Items:       ranked,
		Topics:      cfg.Topics,
		Stats:       stats,
	}, nil
}

func (s *Service) collect(ctx context.Context, cfg RunConfig) ([]model.NewsItem, error) {
	if cfg.Offline {
		return fixture.Load(ctx, s.fixtureDir, s.logger.Named("fixture"))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pool := workerpool.NewPool(s.reader,
		workerpool.WithSize(s.workerCount),
		workerpool.WithTimeout(timeout),
		workerpool.WithMaxItems(cfg.MaxItemsPerSource),
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	return pool.Run(ctx, cfg.Sources), nil
}

// hintsBySource maps source name to its vertical hints. Items from sources
// outside the list get none.
func hintsBySource(sources []model.Source) map[string][]string {
	out := make(map[string][]string, len(sources))
	for _, src := range sources {
		out[src.Name] = src.Topics
	}
	return out
}
