package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v4"
)

// ErrInvalidYAML is returned when the configuration text is not well-formed YAML.
var ErrInvalidYAML = errors.New("invalid yaml")

// Parser turns configuration text into a Config.
type Parser struct {
	// ConfigPath is recorded on every Config built from a document.
	ConfigPath string
}

// NewParser creates a parser that records configPath.
func NewParser(configPath string) *Parser {
	return &Parser{ConfigPath: configPath}
}

// Parse parses raw with a parser recording DefaultPath.
func Parse(raw string, verbosity Level) (*Config, error) {
	return NewParser(DefaultPath).Parse(raw, verbosity)
}

// Parse builds a Config from the first YAML document in raw.
// Text without any document yields a Config carrying only the verbosity.
func (p *Parser) Parse(raw string, verbosity Level) (*Config, error) {
	doc, err := firstDocument(raw)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return minimalConfig(verbosity), nil
	}
	return p.documentConfig(doc, verbosity), nil
}

// firstDocument decodes the first document of raw, or nil if there is none.
// The whole stream must be well-formed, even though later documents are ignored.
func firstDocument(raw string) (*yaml.Node, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	for {
		if err := dec.Decode(&yaml.Node{}); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 0 {
		return nil, nil
	}
	return &doc, nil
}

// minimalConfig is the zero-document result: no sink defaults are applied.
func minimalConfig(verbosity Level) *Config {
	cfg := clean()
	cfg.Verbosity = verbosity
	return cfg
}

// documentConfig applies per-field defaults against a parsed document.
func (p *Parser) documentConfig(doc *yaml.Node, verbosity Level) *Config {
	root := unwrap(doc)

	cfg := &Config{
		Outputs:    outputs(lookup(root, "outputs")),
		ConfigPath: p.ConfigPath,
		Verbosity:  verbosity,
	}

	if host, ok := str(lookup(root, "elasticsearch")); ok {
		url := fmt.Sprintf(elasticsearchURLFormat, host)
		cfg.Elasticsearch = &url
	}
	if s, ok := str(lookup(root, "stdout")); ok {
		cfg.Stdout = &s
	}

	// Influx is always present once a document exists
	influx := lookup(root, "influx")
	cfg.Influx = &InfluxConfig{
		Host:     strOr(lookup(influx, "host"), DefaultInfluxHost),
		Port:     strOr(lookup(influx, "port"), DefaultInfluxPort),
		User:     strOr(lookup(influx, "user"), DefaultInfluxUser),
		Password: strOr(lookup(influx, "password"), DefaultInfluxPassword),
	}

	// Carbon requires an explicit host
	carbon := lookup(root, "carbon")
	if host, ok := str(lookup(carbon, "host")); ok {
		cfg.Carbon = &CarbonConfig{
			Host:    host,
			Port:    strOr(lookup(carbon, "port"), DefaultCarbonPort),
			RootKey: strOr(lookup(carbon, "root_key"), DefaultCarbonRootKey),
		}
	}

	return cfg
}

// outputs converts a sequence node to names; anything but a string element becomes "".
func outputs(n *yaml.Node) []string {
	names := []string{}
	if n == nil || n.Kind != yaml.SequenceNode {
		return names
	}
	for _, item := range n.Content {
		s, _ := str(item)
		names = append(names, s)
	}
	return names
}

// unwrap follows document and alias nodes to the content node.
func unwrap(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// lookup returns the value for key in a mapping node, or nil.
// Later duplicates of a key win.
func lookup(n *yaml.Node, key string) *yaml.Node {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	var found *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k, ok := str(n.Content[i]); ok && k == key {
			found = n.Content[i+1]
		}
	}
	return unwrap(found)
}

// str returns the value of a string scalar. Numbers, booleans and nulls do not count.
func str(n *yaml.Node) (string, bool) {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", false
	}
	return n.Value, true
}

func strOr(n *yaml.Node, def string) string {
	if s, ok := str(n); ok {
		return s
	}
	return def
}
