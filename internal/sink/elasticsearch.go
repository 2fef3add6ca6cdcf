package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/operation"
)

// Elasticsearch indexes each operation as a JSON document.
type Elasticsearch struct {
	client *retryablehttp.Client
	url    string
}

// NewElasticsearch creates a sink posting documents to url.
func NewElasticsearch(url string, client *retryablehttp.Client) *Elasticsearch {
	return &Elasticsearch{client: client, url: url}
}

// Name returns the output name.
func (s *Elasticsearch) Name() string { return config.OutputElasticsearch }

// Write indexes one document.
func (s *Elasticsearch) Write(ctx context.Context, op operation.Operation) error {
	body, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode operation: %w", err)
	}
	return post(ctx, s.client, s.url, "application/json", body)
}

// Close is a no-op.
func (s *Elasticsearch) Close() error { return nil }
