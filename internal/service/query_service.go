package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/ai"
	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/vectorindex"
)

const (
	maxQuestionRunes   = 2000
	askSnippetRunes    = 200
	searchSnippetRunes = 300
)

type QueryLimits struct {
	DefaultMaxChunks int
	MaxChunksLimit   int
	Timeout          time.Duration
}

type AskRequest struct {
	Question    string
	DocumentIDs []string
	MaxChunks   int
	Temperature float32
}

type SearchRequest struct {
	Query       string
	DocumentIDs []string
	MaxChunks   int
}

type SearchResult struct {
	Query            string                 `json:"query"`
	Results          []model.RetrievedChunk `json:"results"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
}

type HealthReport struct {
	Status      string `json:"status"`
	Index       string `json:"index"`
	Generator   string `json:"generator"`
	Embedder    string `json:"embedder"`
	TotalChunks int    `json:"total_chunks"`
}

// QueryService answers questions over a single owner's completed
// documents. Every lookup carries the owner id down to the index, so
// one user's content never leaks into another user's answer.
type QueryService struct {
	docRepo     DocumentStore
	retriever   *Retriever
	synthesizer *Synthesizer
	embedder    ai.IEmbedder
	index       vectorindex.Index
	limits      QueryLimits
}

func NewQueryService(
	docRepo DocumentStore,
	retriever *Retriever,
	synthesizer *Synthesizer,
	embedder ai.IEmbedder,
	index vectorindex.Index,
	limits QueryLimits,
) *QueryService {
	if limits.DefaultMaxChunks <= 0 {
		limits.DefaultMaxChunks = 5
	}
	if limits.MaxChunksLimit <= 0 {
		limits.MaxChunksLimit = 20
	}
	if limits.Timeout <= 0 {
		limits.Timeout = 120 * time.Second
	}
	return &QueryService{
		docRepo:     docRepo,
		retriever:   retriever,
		synthesizer: synthesizer,
		embedder:    embedder,
		index:       index,
		limits:      limits,
	}
}

func (s *QueryService) Ask(ctx context.Context, userID string, req AskRequest) (*model.AnswerResult, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	maxChunks, err := s.validateQuery(question, req.MaxChunks)
	if err != nil {
		return nil, err
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return nil, fmt.Errorf("%w: temperature must be within [0, 2]", appErr.ErrInvalid)
	}
	ctx, cancel := context.WithTimeout(ctx, s.limits.Timeout)
	defer cancel()

	matches, err := s.retrieve(ctx, userID, question, req.DocumentIDs, maxChunks)
	if err != nil {
		return nil, err
	}
	synthesis, err := s.synthesizer.Synthesize(ctx, question, matches, req.Temperature)
	if err != nil {
		return nil, err
	}
	result := &model.AnswerResult{
		Answer:   synthesis.Answer,
		Question: question,
		Sources:  buildSources(matches, askSnippetRunes),
		ModelInfo: model.ModelInfo{
			LLMModel:       s.synthesizer.ModelName(),
			EmbeddingModel: s.embedder.ModelName(),
			ChunksUsed:     len(matches),
			ContextLength:  synthesis.ContextLength,
			Grounded:       synthesis.Grounded,
		},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	logutil.GetLogger(ctx).Info("question answered",
		zap.String("user_id", userID),
		zap.Int("chunks_used", len(matches)),
		zap.Bool("grounded", synthesis.Grounded),
		zap.Int64("cost_ms", result.ProcessingTimeMs))
	return result, nil
}

func (s *QueryService) Search(ctx context.Context, userID string, req SearchRequest) (*SearchResult, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Query)
	maxChunks, err := s.validateQuery(query, req.MaxChunks)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.limits.Timeout)
	defer cancel()

	matches, err := s.retrieve(ctx, userID, query, req.DocumentIDs, maxChunks)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Query:            query,
		Results:          buildSources(matches, searchSnippetRunes),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (s *QueryService) validateQuery(question string, maxChunks int) (int, error) {
	if question == "" {
		return 0, fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	if len([]rune(question)) > maxQuestionRunes {
		return 0, fmt.Errorf("%w: question exceeds %d characters", appErr.ErrInvalid, maxQuestionRunes)
	}
	if maxChunks == 0 {
		return s.limits.DefaultMaxChunks, nil
	}
	if maxChunks < 1 || maxChunks > s.limits.MaxChunksLimit {
		return 0, fmt.Errorf("%w: max_chunks must be within [1, %d]", appErr.ErrInvalid, s.limits.MaxChunksLimit)
	}
	return maxChunks, nil
}

func (s *QueryService) retrieve(ctx context.Context, userID, question string, documentIDs []string, maxChunks int) ([]vectorindex.Match, error) {
	if err := s.checkDocumentFilter(ctx, userID, documentIDs); err != nil {
		return nil, err
	}
	if len(documentIDs) == 0 {
		completed, err := s.docRepo.ListCompletedIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(completed) == 0 {
			return nil, nil
		}
	}
	vector, err := s.embedder.Embed(ctx, question, ai.TaskTypeQuery)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	return s.retriever.Retrieve(ctx, vector, userID, documentIDs, maxChunks)
}

// checkDocumentFilter confirms every requested document belongs to the
// caller. A document owned by someone else is indistinguishable from a
// missing one.
func (s *QueryService) checkDocumentFilter(ctx context.Context, userID string, documentIDs []string) error {
	for _, docID := range documentIDs {
		if _, err := s.docRepo.GetByID(ctx, userID, docID); err != nil {
			if errors.Is(err, appErr.ErrNotFound) {
				return fmt.Errorf("%w: document %s", appErr.ErrNotFound, docID)
			}
			return err
		}
	}
	return nil
}

func (s *QueryService) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{Status: "ok", Index: "ok", Generator: "ok", Embedder: "ok"}
	if err := s.index.Ping(ctx); err != nil {
		report.Index = err.Error()
		report.Status = "degraded"
	} else if total, err := s.index.TotalChunks(ctx); err == nil {
		report.TotalChunks = total
	}
	if err := s.synthesizer.Ping(ctx); err != nil {
		report.Generator = err.Error()
		report.Status = "degraded"
	}
	if err := s.embedder.Ping(ctx); err != nil {
		report.Embedder = err.Error()
		report.Status = "degraded"
	}
	return report
}

func buildSources(matches []vectorindex.Match, snippetRunes int) []model.RetrievedChunk {
	sources := make([]model.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, model.RetrievedChunk{
			ChunkID:    m.Chunk.ID,
			DocumentID: m.Chunk.DocumentID,
			Seq:        m.Chunk.Seq,
			Score:      m.Score,
			Snippet:    truncateRunes(m.Chunk.Content, snippetRunes),
		})
	}
	return sources
}
