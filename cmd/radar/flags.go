package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// binding maps a flag to its config key.
type binding struct {
	key   string
	value func() any
}

const (
	cmdRun   = "run"
	cmdServe = "serve"
)

// parseFlags returns the command and the settings the user explicitly set,
// keyed by their config name, so unset flags never mask file or env values.
func parseFlags(args []string, out io.Writer) (string, map[string]any, error) {
	fs := pflag.NewFlagSet("radar", pflag.ContinueOnError)
	fs.SetOutput(out)

	var (
		configDir     = fs.String("config-dir", "config", "directory containing topics and news_sources files")
		sampleDataDir = fs.String("sample-data-dir", "sample_data", "directory containing offline_articles.json")
		output        = fs.StringP("output", "o", "artifacts/latest.md", "path for the Markdown report ('-' disables)")
		outputJSON    = fs.String("output-json", "artifacts/data/latest.json", "path for the JSON payload ('-' disables)")
		offline       = fs.Bool("offline", false, "use the offline fixture instead of fetching feeds")
		limit         = fs.Int("limit", 0, "maximum number of items in the report (0 = all)")
		logLevel      = fs.String("log-level", "info", "log level: debug, info, warn, error")
		noPrint       = fs.Bool("no-print", false, "do not print the report to stdout")
		timeout       = fs.Int("timeout", 20, "per-source request timeout in seconds")
		maxItems      = fs.Int("max-items", 0, "maximum entries read from each feed (0 = all)")
		workers       = fs.Int("workers", 4, "number of feeds fetched concurrently")
		userAgent     = fs.String("user-agent", "compliance-radar/1.0", "User-Agent header sent to feeds")
		retries       = fs.Int("retries", 0, "retries for feeds answering 5xx")
		metricsFile   = fs.String("metrics-file", "", "write Prometheus metrics to this file")
		archivePath   = fs.String("archive", "", "bbolt database archiving every run")
		publishers    = fs.String("publishers", "", "publishers file (YAML or JSON)")
		addr          = fs.String("addr", ":8080", "listen address for serve")
	)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: radar [run|serve] [flags]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}

	cmd := cmdRun
	switch rest := fs.Args(); {
	case len(rest) > 1:
		return "", nil, fmt.Errorf("unexpected arguments: %v", rest[1:])
	case len(rest) == 1 && rest[0] != cmdRun && rest[0] != cmdServe:
		return "", nil, fmt.Errorf("unknown command %q", rest[0])
	case len(rest) == 1:
		cmd = rest[0]
	}

	bindings := map[string]binding{
		"config-dir":      {"config_dir", func() any { return *configDir }},
		"sample-data-dir": {"sample_data_dir", func() any { return *sampleDataDir }},
		"output":          {"output_markdown", func() any { return *output }},
		"output-json":     {"output_json", func() any { return *outputJSON }},
		"offline":         {"offline", func() any { return *offline }},
		"limit":           {"limit", func() any { return *limit }},
		"log-level":       {"log_level", func() any { return *logLevel }},
		"no-print":        {"print", func() any { return !*noPrint }},
		"timeout":         {"request_timeout", func() any { return *timeout }},
		"max-items":       {"max_items_per_source", func() any { return *maxItems }},
		"workers":         {"worker_count", func() any { return *workers }},
		"user-agent":      {"user_agent", func() any { return *userAgent }},
		"retries":         {"retry_count", func() any { return *retries }},
		"metrics-file":    {"metrics_file", func() any { return *metricsFile }},
		"archive":         {"archive_path", func() any { return *archivePath }},
		"publishers":      {"publishers_file", func() any { return *publishers }},
		"addr":            {"addr", func() any { return *addr }},
	}

	overrides := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		b := bindings[f.Name]
		overrides[b.key] = b.value()
	})
	return cmd, overrides, nil
}
