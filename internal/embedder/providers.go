package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderLocal  = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"

	// Dimensions
	OpenAIDimension = 1536
	JinaDimension   = 1024
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50

	// API endpoints
	openAIEndpoint = "https://api.openai.com/v1/embeddings"
	jinaEndpoint   = "https://api.jina.ai/v1/embeddings"

	// Environment variables
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// HTTPProvider implements Client against an OpenAI-compatible embeddings API
// (OpenAI and Jina share the request/response shape).
type HTTPProvider struct {
	name       string
	apiKey     string
	model      string
	endpoint   string
	dimension  int
	batchSize  int
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates a client for the OpenAI embeddings API.
func NewOpenAIProvider(apiKey string, cache *Cache) (*HTTPProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return &HTTPProvider{
		name:      ProviderOpenAI,
		apiKey:    apiKey,
		model:     DefaultOpenAIModel,
		endpoint:  openAIEndpoint,
		dimension: OpenAIDimension,
		batchSize: DefaultBatchSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

// NewJinaProvider creates a client for the Jina AI embeddings API.
func NewJinaProvider(apiKey string, cache *Cache) (*HTTPProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}
	return &HTTPProvider{
		name:      ProviderJina,
		apiKey:    apiKey,
		model:     DefaultJinaModel,
		endpoint:  jinaEndpoint,
		dimension: JinaDimension,
		batchSize: DefaultBatchSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

// SetEndpoint overrides the API endpoint. Used by tests.
func (p *HTTPProvider) SetEndpoint(url string) {
	p.endpoint = url
}

// SetBatchSize overrides the sub-batch cap.
func (p *HTTPProvider) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if v, ok := p.cache.Get(hash); ok {
			return v, nil
		}
	}

	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return vectors[0], nil
}

func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	vectors, err := embedInBatches(ctx, texts, p.batchSize, p.callAPI)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		for i, v := range vectors {
			p.cache.Set(ComputeHash(texts[i]), v)
		}
	}
	return vectors, nil
}

func (p *HTTPProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: api error %d: %s", ErrProviderFailed, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderFailed, err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProviderFailed, len(texts), len(apiResp.Data))
	}

	// The API documents data as ordered, but index is authoritative.
	vectors := make([][]float32, len(texts))
	for i, data := range apiResp.Data {
		pos := data.Index
		if pos < 0 || pos >= len(vectors) {
			pos = i
		}
		vectors[pos] = data.Embedding
	}
	return vectors, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return p.name
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider generates deterministic hash-derived vectors with no network
// dependency. Suitable for development and tests, not semantic quality.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates a local embedding client.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{cache: cache}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if v, ok := l.cache.Get(hash); ok {
			return v, nil
		}
	}

	vector := make([]float32, LocalDimension)
	sum := sha256.Sum256([]byte(text))
	for i := range vector {
		vector[i] = float32(sum[i%len(sum)]) / 255.0
	}
	vector = NormalizeVector(vector)

	if l.cache != nil {
		l.cache.Set(hash, vector)
	}
	return vector, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := l.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity).
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
