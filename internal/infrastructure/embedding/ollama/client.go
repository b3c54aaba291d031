package ollama

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docsearch/internal/core/domain"
	"github.com/kirillkom/docsearch/internal/infrastructure/resilience"
)

// Client embeds chunk batches and queries through an Ollama-compatible
// /api/embed endpoint. Returned vectors are unit L2-normalized so cosine
// similarity and dot product are interchangeable downstream.
type Client struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, dimension int, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	request := map[string]any{
		"model": c.model,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/embed", request, &response, "embed")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.embed", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed batch", err)
	}

	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed batch",
			fmt.Errorf("vectors/texts mismatch: %d/%d", len(response.Embeddings), len(texts)))
	}
	for i, vector := range response.Embeddings {
		if c.dimension > 0 && len(vector) != c.dimension {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "embed batch",
				fmt.Errorf("vector %d has dimension %d, want %d", i, len(vector), c.dimension))
		}
		normalize(vector)
	}
	return response.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
}
