package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/compliance-radar/internal/config"
)

// Publisher types.
const (
	TypeQueue = "queue"
	TypeHTTP  = "http"
)

// Queue providers.
const (
	ProviderAWSSQS = "aws-sqs"
	ProviderAWSSNS = "aws-sns"
	ProviderGCP    = "gcp"
	ProviderKafka  = "kafka"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

type configFile struct {
	Publishers []Config `json:"publishers" yaml:"publishers"`
}

// Config is one publisher entry of the publishers file.
type Config struct {
	ID      string       `json:"id" yaml:"id"`
	Type    string       `json:"type" yaml:"type"`
	Enabled *bool        `json:"enabled" yaml:"enabled"`
	Queue   *QueueConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPConfig  `json:"http" yaml:"http"`
}

// QueueConfig selects a queue provider and carries its settings.
type QueueConfig struct {
	Provider string       `json:"provider" yaml:"provider"`
	SQS      *SQSConfig   `json:"sqs" yaml:"sqs"`
	SNS      *SNSConfig   `json:"sns" yaml:"sns"`
	GCP      *GCPConfig   `json:"gcp" yaml:"gcp"`
	Kafka    *KafkaConfig `json:"kafka" yaml:"kafka"`
}

// AWSCredentials are optional static keys; when empty the default AWS
// credential chain is used.
type AWSCredentials struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSConfig holds AWS SQS settings.
type SQSConfig struct {
	QueueURL       string `json:"queue_url" yaml:"queue_url"`
	AWSCredentials `json:",inline" yaml:",inline"`
}

// SNSConfig holds AWS SNS settings.
type SNSConfig struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	AWSCredentials `json:",inline" yaml:",inline"`
}

// GCPConfig holds Pub/Sub topic settings.
type GCPConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// KafkaConfig holds Kafka writer settings.
type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

// HTTPConfig holds webhook settings.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// IsEnabled defaults to true when the flag is absent.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadConfigs reads and validates a YAML or JSON publishers file. ${VAR}
// references are expanded from the environment. Errors wrap
// config.ErrInvalidConfig or config.ErrLoadConfig.
func LoadConfigs(path string) ([]Config, error) {
	path = strings.TrimSpace(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read publishers file: %w", config.ErrLoadConfig, err)
	}
	return ParseConfigs([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseConfigs decodes and validates publisher entries. ext selects the
// decoder; ".json" uses JSON, anything else YAML.
func ParseConfigs(data []byte, ext string) ([]Config, error) {
	var file configFile
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode publishers file: %w", config.ErrLoadConfig, err)
	}
	if len(file.Publishers) == 0 {
		return nil, fmt.Errorf("%w: publishers file contains no publishers entries", config.ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	out := make([]Config, 0, len(file.Publishers))
	for i, c := range file.Publishers {
		c = sanitize(c)
		if err := validate(c); err != nil {
			return nil, fmt.Errorf("%w: publishers[%d]: %w", config.ErrInvalidConfig, i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate publisher id %q", config.ErrInvalidConfig, c.ID)
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Enabled filters cfgs down to enabled entries.
func Enabled(cfgs []Config) []Config {
	out := make([]Config, 0, len(cfgs))
	for _, c := range cfgs {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

func sanitize(c Config) Config {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Queue != nil {
		q := *c.Queue
		q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
		if q.SQS != nil {
			s := *q.SQS
			s.QueueURL = strings.TrimSpace(s.QueueURL)
			s.AWSCredentials = trimCredentials(s.AWSCredentials)
			q.SQS = &s
		}
		if q.SNS != nil {
			s := *q.SNS
			s.TopicARN = strings.TrimSpace(s.TopicARN)
			s.AWSCredentials = trimCredentials(s.AWSCredentials)
			q.SNS = &s
		}
		if q.GCP != nil {
			g := *q.GCP
			g.ProjectID = strings.TrimSpace(g.ProjectID)
			g.Topic = strings.TrimSpace(g.Topic)
			g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
			q.GCP = &g
		}
		if q.Kafka != nil {
			k := *q.Kafka
			k.Topic = strings.TrimSpace(k.Topic)
			brokers := make([]string, 0, len(k.Brokers))
			for _, b := range k.Brokers {
				if b = strings.TrimSpace(b); b != "" {
					brokers = append(brokers, b)
				}
			}
			k.Brokers = brokers
			q.Kafka = &k
		}
		c.Queue = &q
	}
	if c.HTTP != nil {
		h := *c.HTTP
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = httpDefaultMethod
		}
		h.Headers = sanitizeHeaders(h.Headers)
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		c.HTTP = &h
	}
	return c
}

func trimCredentials(c AWSCredentials) AWSCredentials {
	return AWSCredentials{
		Region:          strings.TrimSpace(c.Region),
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
	}
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validate(c Config) error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	switch c.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", c.ID)
	case TypeQueue:
		if c.Queue == nil {
			return fmt.Errorf("queue config required for publisher %q", c.ID)
		}
		return validateQueue(c.ID, c.Queue)
	case TypeHTTP:
		if c.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", c.ID)
		}
		if c.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", c.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: type %q for publisher %q", ErrUnsupported, c.Type, c.ID)
	}
}

func validateQueue(id string, q *QueueConfig) error {
	switch q.Provider {
	case ProviderAWSSQS:
		switch {
		case q.SQS == nil:
			return fmt.Errorf("sqs config required for publisher %q", id)
		case q.SQS.QueueURL == "":
			return fmt.Errorf("sqs.queue_url is required for publisher %q", id)
		}
		return validateCredentials(id, "sqs", q.SQS.AWSCredentials)
	case ProviderAWSSNS:
		switch {
		case q.SNS == nil:
			return fmt.Errorf("sns config required for publisher %q", id)
		case q.SNS.TopicARN == "":
			return fmt.Errorf("sns.topic_arn is required for publisher %q", id)
		}
		return validateCredentials(id, "sns", q.SNS.AWSCredentials)
	case ProviderGCP:
		switch {
		case q.GCP == nil:
			return fmt.Errorf("gcp config required for publisher %q", id)
		case q.GCP.ProjectID == "":
			return fmt.Errorf("gcp.project_id is required for publisher %q", id)
		case q.GCP.Topic == "":
			return fmt.Errorf("gcp.topic is required for publisher %q", id)
		}
	case ProviderKafka:
		switch {
		case q.Kafka == nil:
			return fmt.Errorf("kafka config required for publisher %q", id)
		case len(q.Kafka.Brokers) == 0:
			return fmt.Errorf("kafka.brokers is required for publisher %q", id)
		case q.Kafka.Topic == "":
			return fmt.Errorf("kafka.topic is required for publisher %q", id)
		}
	default:
		return fmt.Errorf("%w: queue provider %q for publisher %q", ErrUnsupported, q.Provider, id)
	}
	return nil
}

func validateCredentials(id, prefix string, c AWSCredentials) error {
	if c.Region == "" {
		return fmt.Errorf("%s.region is required for publisher %q", prefix, id)
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", prefix, prefix, id)
	}
	return nil
}
