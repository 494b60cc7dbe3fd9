package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/compliance-radar/internal/adapters/archive"
)

const testTopics = `{
  "verticals": {
    "finance": {"label": "Finance", "keywords": ["bank"]},
    "healthcare": {"keywords": ["hospital"]}
  },
  "compliance": {
    "privacy": {"label": "Privacy", "keywords": ["GDPR"]},
    "aml": {"label": "AML", "keywords": ["money laundering"]}
  }
}`

const testSources = `{"sources": [{"name": "A", "url": "http://127.0.0.1:1/a", "topics": ["finance"]}]}`

const testArticles = `[
  {"source": "A", "title": "Bank announces GDPR audit", "link": "https://a/1", "published": "2024-05-01T10:00:00+00:00"},
  {"source": "B", "title": "Hospital money laundering inquiry", "link": "https://b/1", "summary": "bank accounts"},
  {"source": "B", "title": "Weather update", "link": "https://b/2"}
]`

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// workspace lays out config and fixture files in a fresh working directory.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	write(t, filepath.Join(dir, "config", "topics.json"), testTopics)
	write(t, filepath.Join(dir, "config", "news_sources.json"), testSources)
	write(t, filepath.Join(dir, "sample_data", "offline_articles.json"), testArticles)
	return dir
}

func TestRunOffline(t *testing.T) {
	convey.Convey("Given a workspace with catalog and fixture", t, func() {
		dir := workspace(t)
		var stdout, stderr bytes.Buffer

		convey.Convey("When an offline run archives and exports metrics", func() {
			code := run(context.Background(), []string{"--offline", "--archive", "runs.db", "--metrics-file", "out/metrics.prom"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, exitOK)

			convey.Convey("Then the briefing is printed and written", func() {
				convey.So(stdout.String(), convey.ShouldStartWith, "# Compliance Intelligence Briefing - ")
				convey.So(stdout.String(), convey.ShouldContainSubstring, "- Relevant items: 2\n")
				md, err := os.ReadFile(filepath.Join(dir, "artifacts", "latest.md"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(md), convey.ShouldEqual, stdout.String())
			})

			convey.Convey("Then the payload is written and archived", func() {
				data, err := os.ReadFile(filepath.Join(dir, "artifacts", "data", "latest.json"))
				convey.So(err, convey.ShouldBeNil)

				var doc struct {
					RunID   string `json:"run_id"`
					Summary struct {
						TotalItems int `json:"total_items"`
					} `json:"summary"`
				}
				convey.So(json.Unmarshal(data, &doc), convey.ShouldBeNil)
				convey.So(doc.RunID, convey.ShouldNotBeEmpty)
				convey.So(doc.Summary.TotalItems, convey.ShouldEqual, 2)

				a, err := archive.Open(filepath.Join(dir, "runs.db"), nil)
				convey.So(err, convey.ShouldBeNil)
				defer a.Close()
				latest, err := a.Latest(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(latest.Payload, convey.ShouldResemble, data)
				convey.So(latest.Key, convey.ShouldEndWith, "_"+doc.RunID)
			})

			convey.Convey("Then metrics are exported", func() {
				prom, err := os.ReadFile(filepath.Join(dir, "out", "metrics.prom"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(prom), convey.ShouldContainSubstring, "radar_pipeline_items_emitted 2")
			})
		})

		convey.Convey("When the settings file renames and labels the metrics", func() {
			write(t, filepath.Join(dir, "config", "agent.yaml"), "metrics_namespace: acme\nmetrics_labels:\n  env: ci\n")
			code := run(context.Background(), []string{"--offline", "--no-print", "--metrics-file", "out/metrics.prom"}, &stdout, &stderr)

			convey.Convey("Then the export carries the new name and label", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				prom, err := os.ReadFile(filepath.Join(dir, "out", "metrics.prom"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(prom), convey.ShouldContainSubstring, `acme_pipeline_items_emitted{env="ci"} 2`)
				convey.So(string(prom), convey.ShouldNotContainSubstring, "radar_pipeline")
			})
		})

		convey.Convey("When a metrics label clashes with a series label", func() {
			write(t, filepath.Join(dir, "config", "agent.yaml"), "metrics_labels:\n  source: ci\n")
			code := run(context.Background(), []string{"--offline", "--no-print"}, &stdout, &stderr)

			convey.Convey("Then the run fails before fetching", func() {
				convey.So(code, convey.ShouldEqual, exitError)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "invalid metrics option")
			})
		})

		convey.Convey("When printing is off and outputs are redirected", func() {
			code := run(context.Background(), []string{"--offline", "--no-print", "-o", "-", "--output-json", "x/payload.json", "--limit", "1"}, &stdout, &stderr)

			convey.Convey("Then nothing reaches stdout and only the JSON is written", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stdout.String(), convey.ShouldBeEmpty)
				_, err := os.Stat(filepath.Join(dir, "artifacts", "latest.md"))
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
				data, err := os.ReadFile(filepath.Join(dir, "x", "payload.json"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, `"total_items": 1`)
			})
		})

		convey.Convey("When a webhook publisher is configured", func() {
			var got atomic.Value
			srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				got.Store(string(b))
			}))
			defer srv.Close()
			write(t, filepath.Join(dir, "publishers.yaml"), "publishers:\n  - id: hook\n    type: http\n    http:\n      url: "+srv.URL+"\n")

			code := run(context.Background(), []string{"--offline", "--no-print", "--publishers", "publishers.yaml"}, &stdout, &stderr)

			convey.Convey("Then the payload is delivered", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				body, _ := got.Load().(string)
				convey.So(body, convey.ShouldContainSubstring, `"run_id"`)
				convey.So(body, convey.ShouldContainSubstring, "Bank announces GDPR audit")
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	convey.Convey("Given a workspace", t, func() {
		dir := workspace(t)
		var stdout, stderr bytes.Buffer

		convey.Convey("When the offline fixture is missing", func() {
			code := run(context.Background(), []string{"--offline", "--sample-data-dir", "nowhere"}, &stdout, &stderr)

			convey.Convey("Then the run fails before writing artifacts", func() {
				convey.So(code, convey.ShouldEqual, exitError)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "error: ")
				convey.So(stderr.String(), convey.ShouldContainSubstring, "offline_articles.json")
				_, err := os.Stat(filepath.Join(dir, "artifacts"))
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the catalog is missing", func() {
			code := run(context.Background(), []string{"--offline", "--config-dir", "missing"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, exitError)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "configuration file not found")
		})

		convey.Convey("When a setting is invalid", func() {
			code := run(context.Background(), []string{"--workers", "0"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, exitError)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "worker_count")
		})

		convey.Convey("When a flag is unknown", func() {
			code := run(context.Background(), []string{"--bogus"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, exitUsage)
		})
	})
}

func TestParseFlags(t *testing.T) {
	convey.Convey("Given command line arguments", t, func() {
		cmd, overrides, err := parseFlags([]string{"--limit", "3", "--no-print", "--offline", "-o", "report.md"}, io.Discard)

		convey.Convey("Then only explicitly set flags become overrides", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cmd, convey.ShouldEqual, cmdRun)
			convey.So(overrides, convey.ShouldResemble, map[string]any{
				"limit":           3,
				"print":           false,
				"offline":         true,
				"output_markdown": "report.md",
			})
		})
	})
}

func TestParseCommand(t *testing.T) {
	convey.Convey("Given a serve invocation", t, func() {
		cmd, overrides, err := parseFlags([]string{"serve", "--addr", "127.0.0.1:9000", "--archive", "runs.db"}, io.Discard)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cmd, convey.ShouldEqual, cmdServe)
		convey.So(overrides, convey.ShouldResemble, map[string]any{"addr": "127.0.0.1:9000", "archive_path": "runs.db"})
	})

	convey.Convey("Given an unknown command", t, func() {
		_, _, err := parseFlags([]string{"deploy"}, io.Discard)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, `unknown command "deploy"`)
	})
}
