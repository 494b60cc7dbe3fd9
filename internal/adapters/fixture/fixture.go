// Package fixture loads the offline article set used instead of live feeds.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/compliance-radar/internal/adapters/feed"
	"github.com/okian/compliance-radar/internal/config"
	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/okian/compliance-radar/pkg/logger"
)

// FileName is the fixture file looked up in the sample data dir.
const FileName = "offline_articles.json"

// ErrFixtureMissing is returned when offline mode is requested without a fixture.
var ErrFixtureMissing = errors.New("offline fixture not found")

type article struct {
	Source     *string  `json:"source"`
	Title      *string  `json:"title"`
	Link       string   `json:"link"`
	Summary    string   `json:"summary"`
	Published  string   `json:"published"`
	Categories []string `json:"categories"`
}

// Load reads <dir>/offline_articles.json into unclassified items, in file order.
// A missing file wraps ErrFixtureMissing; undecodable JSON wraps
// config.ErrLoadConfig. Unparseable dates are logged and dropped.
func Load(ctx context.Context, dir string, log logger.Logger) ([]model.NewsItem, error) {
	if log == nil {
		log = logger.Nop()
	}
	path := filepath.Join(dir, FileName)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: offline mode requested but fixture file '%s' was not found in %s", ErrFixtureMissing, FileName, dir)
		}
		return nil, fmt.Errorf("%w: read %s: %w", config.ErrLoadConfig, path, err)
	}

	var articles []article
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", config.ErrLoadConfig, path, err)
	}

	items := make([]model.NewsItem, 0, len(articles))
	for _, a := range articles {
		published := feed.ParseDate(a.Published)
		if published.IsZero() && strings.TrimSpace(a.Published) != "" {
			log.Warn(ctx, "could not parse published date", logger.String("published", a.Published))
		}
		items = append(items, model.NewNewsItem(
			deref(a.Source, model.UnknownSource),
			deref(a.Title, model.DefaultTitle),
			a.Link,
			a.Summary,
			published,
			a.Categories,
		))
	}
	return items, nil
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
