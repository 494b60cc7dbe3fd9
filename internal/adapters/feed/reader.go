// Package feed fetches RSS and Atom documents and turns them into news items.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/okian/compliance-radar/pkg/logger"
	"github.com/okian/compliance-radar/pkg/metrics"
)

const (
	defaultUserAgent = "compliance-radar/1.0"
	acceptHeader     = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
	snippetLimit     = 256
)

// Reader fetches one source at a time. It is safe for concurrent use.
type Reader struct {
	client    *resty.Client
	userAgent string
	retries   int
	log       logger.Logger
}

// NewReader creates a Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		userAgent: defaultUserAgent,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = resty.New()
	}
	r.client.SetRetryCount(r.retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err == nil && resp != nil && resp.StatusCode() >= http.StatusInternalServerError
		})
	return r
}

// Read fetches and parses src. Failures are logged and yield an empty slice;
// they never abort the caller. A positive maxItems keeps only the first
// maxItems entries.
func (r *Reader) Read(ctx context.Context, src model.Source, timeout time.Duration, maxItems int) []model.NewsItem {
	start := time.Now()
	defer func() { metrics.RecordFetchLatency(src.Name, time.Since(start).Seconds()) }()

	body, err := r.Fetch(ctx, src.URL, timeout)
	if err != nil {
		r.log.Warn(ctx, "failed to fetch feed",
			logger.String("source", src.Name),
			logger.String("url", src.URL),
			logger.Error(err),
		)
		metrics.RecordFetchFailure(src.Name)
		return []model.NewsItem{}
	}

	items, err := Parse(body, src.Name, maxItems)
	if err != nil {
		r.log.Warn(ctx, "failed to parse feed",
			logger.String("source", src.Name),
			logger.String("url", src.URL),
			logger.Error(err),
		)
		metrics.RecordFetchFailure(src.Name)
		return []model.NewsItem{}
	}

	r.log.Debug(ctx, "feed read",
		logger.String("source", src.Name),
		logger.Int("items", len(items)),
		logger.Duration("took", time.Since(start)),
	)
	metrics.RecordItemsFetched(src.Name, len(items))
	return items
}

// Fetch GETs url and returns the body. Transport errors and non-2xx
// responses wrap ErrFetch. A positive timeout bounds the whole call.
func (r *Reader) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetHeader("Accept", acceptHeader).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrFetch, url, err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s returned status %d body: %s", ErrFetch, url, resp.StatusCode(), responseSnippet(body))
	}
	return body, nil
}

func responseSnippet(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit]) + "..."
	}
	return string(body)
}
