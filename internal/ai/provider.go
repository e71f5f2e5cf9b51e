package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks a backend that cannot be reached or is not
// configured. Callers translate it into the embedding/generation
// specific error of their stage.
var ErrUnavailable = errors.New("ai backend unavailable")

// Task types passed through to embedding backends that distinguish
// indexed passages from search queries.
const (
	TaskTypeDocument = "retrieval_document"
	TaskTypeQuery    = "retrieval_query"
)

type GenOptions struct {
	Temperature float32
	MaxTokens   int
}

type IGenProvider interface {
	Name() string
	Generate(ctx context.Context, model string, prompt string, opts GenOptions) (string, error)
	Ping(ctx context.Context) error
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
	Ping(ctx context.Context) error
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenOptions) (string, error)
	ModelName() string
	Ping(ctx context.Context) error
}

// IEmbedder maps text to fixed-dimension vectors. Batch results keep
// input order; every vector has exactly Dimension() values.
type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
	Dimension() int
	Ping(ctx context.Context) error
}

type generator struct {
	provider IGenProvider
	model    string
}

func NewGenerator(p IGenProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string, opts GenOptions) (string, error) {
	return g.provider.Generate(ctx, g.model, prompt, opts)
}

func (g *generator) ModelName() string {
	return g.model
}

func (g *generator) Ping(ctx context.Context) error {
	return g.provider.Ping(ctx)
}

type embedder struct {
	provider  IEmbedProvider
	model     string
	dimension int
}

func NewEmbedder(p IEmbedProvider, model string, dimension int) IEmbedder {
	return &embedder{provider: p, model: model, dimension: dimension}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vec, err := e.provider.Embed(ctx, e.model, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := e.checkDimension(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.provider.EmbedBatch(ctx, e.model, texts, taskType)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed batch returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	for _, vec := range vecs {
		if err := e.checkDimension(vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *embedder) checkDimension(vec []float32) error {
	if e.dimension > 0 && len(vec) != e.dimension {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), e.dimension)
	}
	return nil
}

func (e *embedder) ModelName() string {
	return e.model
}

func (e *embedder) Dimension() int {
	return e.dimension
}

func (e *embedder) Ping(ctx context.Context) error {
	return e.provider.Ping(ctx)
}

type GenFactory func(args interface{}) (IGenProvider, error)

type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	genRegistry   = map[string]GenFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory GenFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	genRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewProvider(name string, args interface{}) (IGenProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := genRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

// decodeConfig fills dst from the free-form config block. A nil block
// leaves dst at its zero value; providers that need settings validate
// them in their factory.
func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
