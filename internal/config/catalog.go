package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	model "github.com/okian/compliance-radar/internal/domain/model"
)

// Catalog file stems looked up in the config dir.
const (
	TopicsStem  = "topics"
	SourcesStem = "news_sources"
)

var catalogExts = []string{".json", ".yaml", ".yml"} //nolint:gochecknoglobals // fixed lookup list

// Catalog is the immutable source list and topic taxonomies for a run.
type Catalog struct {
	Sources []model.Source
	Topics  model.TopicsConfig
}

// LoadCatalog reads topics and news_sources from dir. Both files are required.
func LoadCatalog(_ context.Context, dir string) (*Catalog, error) {
	topicsPath, err := findCatalogFile(dir, TopicsStem)
	if err != nil {
		return nil, err
	}
	sourcesPath, err := findCatalogFile(dir, SourcesStem)
	if err != nil {
		return nil, err
	}

	topics, err := LoadTopics(topicsPath)
	if err != nil {
		return nil, err
	}
	sources, err := LoadSources(sourcesPath)
	if err != nil {
		return nil, err
	}
	return &Catalog{Sources: sources, Topics: topics}, nil
}

func findCatalogFile(dir, stem string) (string, error) {
	for _, ext := range catalogExts {
		path := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: configuration file not found: %s",
		ErrLoadConfig, filepath.Join(dir, stem+catalogExts[0]))
}

// LoadTopics reads a topics file.
func LoadTopics(path string) (model.TopicsConfig, error) {
	root, err := readDocument(path)
	if err != nil {
		return model.TopicsConfig{}, err
	}
	topics, err := ParseTopics(root)
	if err != nil {
		return model.TopicsConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return topics, nil
}

// LoadSources reads a news sources file.
func LoadSources(path string) ([]model.Source, error) {
	root, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	sources, err := ParseSources(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sources, nil
}

// readDocument loads path, expands ${VAR} references and returns the
// top-level mapping node. JSON input is accepted as YAML.
func readDocument(path string) (*yaml.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: configuration file not found: %s", ErrLoadConfig, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
	}
	return decodeDocument([]byte(os.ExpandEnv(string(raw))), path)
}

func decodeDocument(data []byte, name string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, name, err)
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidConfig, name)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s must contain an object at the top level", ErrInvalidConfig, name)
	}
	return root, nil
}

// ParseTopics converts a topics mapping node into a TopicsConfig,
// preserving cluster order.
func ParseTopics(root *yaml.Node) (model.TopicsConfig, error) {
	var verticals, compliance []model.KeywordCluster
	var err error

	if node := lookup(root, "verticals"); node != nil {
		if verticals, err = parseClusters(node, "verticals"); err != nil {
			return model.TopicsConfig{}, err
		}
	}
	if node := lookup(root, "compliance"); node != nil {
		if compliance, err = parseClusters(node, "compliance"); err != nil {
			return model.TopicsConfig{}, err
		}
	}

	vt, err := model.NewTaxonomy(verticals...)
	if err != nil {
		return model.TopicsConfig{}, fmt.Errorf("%w: verticals: %w", ErrInvalidConfig, err)
	}
	ct, err := model.NewTaxonomy(compliance...)
	if err != nil {
		return model.TopicsConfig{}, fmt.Errorf("%w: compliance: %w", ErrInvalidConfig, err)
	}
	return model.TopicsConfig{Verticals: vt, Compliance: ct}, nil
}

func parseClusters(node *yaml.Node, section string) ([]model.KeywordCluster, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: '%s' must be an object", ErrInvalidConfig, section)
	}
	out := make([]model.KeywordCluster, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		c, err := parseCluster(key, node.Content[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCluster(key string, node *yaml.Node) (model.KeywordCluster, error) {
	if node.Kind != yaml.MappingNode {
		return model.KeywordCluster{}, fmt.Errorf("%w: keyword configuration for '%s' must be an object", ErrInvalidConfig, key)
	}
	c := model.KeywordCluster{Key: key, Label: model.DefaultLabel(key)}

	if label := lookup(node, "label"); label != nil && !isNull(label) {
		if label.Kind != yaml.ScalarNode {
			return model.KeywordCluster{}, fmt.Errorf("%w: label for '%s' must be a string", ErrInvalidConfig, key)
		}
		c.Label = label.Value
	}

	kws := lookup(node, "keywords")
	if kws == nil || isNull(kws) {
		c.Keywords = []string{}
		return c, nil
	}
	if kws.Kind != yaml.SequenceNode {
		return model.KeywordCluster{}, fmt.Errorf("%w: keywords for '%s' must be provided as a list", ErrInvalidConfig, key)
	}
	seen := make(map[string]struct{}, len(kws.Content))
	c.Keywords = make([]string, 0, len(kws.Content))
	for _, kw := range kws.Content {
		if kw.Kind != yaml.ScalarNode || kw.Tag != "!!str" {
			return model.KeywordCluster{}, fmt.Errorf("%w: all keywords for '%s' must be strings", ErrInvalidConfig, key)
		}
		v := strings.TrimSpace(kw.Value)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		c.Keywords = append(c.Keywords, v)
	}
	return c, nil
}

// ParseSources converts a sources mapping node into a source list.
func ParseSources(root *yaml.Node) ([]model.Source, error) {
	list := lookup(root, "sources")
	if list == nil || isNull(list) {
		return []model.Source{}, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: 'sources' must be a list of source definitions", ErrInvalidConfig)
	}

	out := make([]model.Source, 0, len(list.Content))
	names := make(map[string]struct{}, len(list.Content))
	for _, entry := range list.Content {
		if entry.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: each source definition must be an object", ErrInvalidConfig)
		}
		var raw struct {
			Name   string    `yaml:"name"`
			URL    string    `yaml:"url"`
			Topics yaml.Node `yaml:"topics"`
		}
		if err := entry.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: source definition: %w", ErrInvalidConfig, err)
		}
		name, url := strings.TrimSpace(raw.Name), strings.TrimSpace(raw.URL)
		if name == "" || url == "" {
			return nil, fmt.Errorf("%w: source definitions must include both 'name' and 'url'", ErrInvalidConfig)
		}
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("%w: duplicate source name '%s'", ErrInvalidConfig, name)
		}
		names[name] = struct{}{}

		topics := []string{}
		if raw.Topics.Kind != 0 && !isNull(&raw.Topics) {
			if raw.Topics.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%w: 'topics' for source '%s' must be a list when provided", ErrInvalidConfig, name)
			}
			if err := raw.Topics.Decode(&topics); err != nil {
				return nil, fmt.Errorf("%w: topics for source '%s': %w", ErrInvalidConfig, name, err)
			}
		}
		out = append(out, model.Source{Name: name, URL: url, Topics: topics})
	}
	return out, nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
