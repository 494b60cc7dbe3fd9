package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/compliance-radar/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var radarEnv = []string{ //nolint:gochecknoglobals // test fixture
	"RADAR_CONFIG", "RADAR_CONFIG_DIR", "RADAR_REQUEST_TIMEOUT", "RADAR_WORKER_COUNT",
	"RADAR_OFFLINE", "RADAR_LIMIT", "RADAR_LOG_LEVEL",
}

// isolate clears radar variables and moves into an empty directory so no
// stray settings file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range radarEnv {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		dir := isolate(t)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 20)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.Offline, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the config dir holds agent.json", func() {
			writeFile(t, filepath.Join(dir, "config", "agent.json"), `{"request_timeout": 7, "max_items_per_source": 3}`)
			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 7)
				convey.So(cfg.MaxItemsPerSource, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When RADAR_CONFIG names a YAML file and env overrides one key", func() {
			path := filepath.Join(dir, "custom.yaml")
			writeFile(t, path, "request_timeout: 9\nworker_count: 2\nlimit: 5\n")
			t.Setenv("RADAR_CONFIG", path)
			t.Setenv("RADAR_WORKER_COUNT", "6")
			t.Setenv("RADAR_OFFLINE", "true")
			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 9)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.Limit, convey.ShouldEqual, 5)
				convey.So(cfg.Offline, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the settings file names metrics settings", func() {
			writeFile(t, filepath.Join(dir, "config", "agent.yaml"),
				"metrics_namespace: acme\nmetrics_enabled: false\nmetrics_labels:\n  env: ci\n  region: eu\nmetrics_buckets: [0.5, 1, 5]\n")
			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then they are decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "acme")
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"env": "ci", "region": "eu"})
				convey.So(cfg.MetricsBuckets, convey.ShouldResemble, []float64{0.5, 1, 5})
			})
		})

		convey.Convey("When overrides are given", func() {
			t.Setenv("RADAR_LIMIT", "4")
			cfg, err := config.Load(ctx, map[string]any{"limit": 1, "offline": true})

			convey.Convey("Then overrides win over env", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Limit, convey.ShouldEqual, 1)
				convey.So(cfg.Offline, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config_dir override points elsewhere", func() {
			other := filepath.Join(dir, "elsewhere")
			writeFile(t, filepath.Join(other, "agent.yaml"), "request_timeout: 11\n")
			cfg, err := config.Load(ctx, map[string]any{"config_dir": other})

			convey.Convey("Then the settings file is read from there", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ConfigDir, convey.ShouldEqual, other)
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 11)
			})
		})

		convey.Convey("When RADAR_CONFIG points at a missing file", func() {
			t.Setenv("RADAR_CONFIG", filepath.Join(dir, "nope.yaml"))
			_, err := config.Load(ctx, nil)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value fails validation", func() {
			t.Setenv("RADAR_REQUEST_TIMEOUT", "0")
			_, err := config.Load(ctx, nil)

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
