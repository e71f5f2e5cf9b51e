package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/docask/docask/internal/ai"
	"github.com/docask/docask/internal/extract"
	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
)

var errEmbedderDown = fmt.Errorf("%w: connection refused", ai.ErrUnavailable)

type fakeDocStore struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]*model.Document{}}
}

func (f *fakeDocStore) Create(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeDocStore) get(userID, docID string) (*model.Document, error) {
	doc, ok := f.docs[docID]
	if !ok || doc.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocStore) MarkProcessing(ctx context.Context, userID, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(userID, docID)
	if err != nil {
		return err
	}
	if doc.Status != model.DocumentStatusPending {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusProcessing
	return nil
}

func (f *fakeDocStore) MarkCompleted(ctx context.Context, userID, docID string, chunkCount int, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(userID, docID)
	if err != nil {
		return err
	}
	if doc.Status != model.DocumentStatusProcessing {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusCompleted
	doc.ChunkCount = chunkCount
	doc.ContentPreview = preview
	doc.Error = ""
	return nil
}

func (f *fakeDocStore) MarkFailed(ctx context.Context, userID, docID string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(userID, docID)
	if err != nil {
		return err
	}
	if doc.Status != model.DocumentStatusProcessing {
		return appErr.ErrNotFound
	}
	doc.Status = model.DocumentStatusFailed
	doc.ChunkCount = 0
	doc.Error = message
	return nil
}

func (f *fakeDocStore) GetByID(ctx context.Context, userID, docID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.get(userID, docID)
	if err != nil {
		return nil, err
	}
	clone := *doc
	return &clone, nil
}

func (f *fakeDocStore) List(ctx context.Context, userID string, status string, limit, offset uint) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Document, 0)
	for _, doc := range f.docs {
		if doc.UserID != userID {
			continue
		}
		if status != "" && doc.Status != status {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (f *fakeDocStore) ListCompletedIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0)
	for _, doc := range f.docs {
		if doc.UserID == userID && doc.Status == model.DocumentStatusCompleted {
			ids = append(ids, doc.ID)
		}
	}
	return ids, nil
}

func (f *fakeDocStore) Delete(ctx context.Context, userID, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(userID, docID); err != nil {
		return err
	}
	delete(f.docs, docID)
	return nil
}

func (f *fakeDocStore) Stats(ctx context.Context, userID string) (*model.OwnerStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &model.OwnerStats{CountsByStatus: map[string]int{}}
	for _, doc := range f.docs {
		if doc.UserID != userID {
			continue
		}
		stats.TotalDocuments++
		stats.TotalChunks += doc.ChunkCount
		stats.TotalBytes += doc.ByteSize
		stats.CountsByStatus[doc.Status]++
	}
	return stats, nil
}

// fakeEmbedder maps every text to a fixed vector so retrieval order
// is under test control.
type fakeEmbedder struct {
	vectors   map[string][]float32
	fallback  []float32
	err       error
	dimension int
}

func newFakeEmbedder(dimension int) *fakeEmbedder {
	fallback := make([]float32, dimension)
	fallback[0] = 1
	return &fakeEmbedder{
		vectors:   map[string][]float32{},
		fallback:  fallback,
		dimension: dimension,
	}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := f.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "test-embed"
}

func (f *fakeEmbedder) Dimension() int {
	return f.dimension
}

func (f *fakeEmbedder) Ping(ctx context.Context) error {
	return f.err
}

type fakeGenerator struct {
	answer     string
	err        error
	lastPrompt string
	lastOpts   ai.GenOptions
	calls      int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts ai.GenOptions) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) ModelName() string {
	return "test-llm"
}

func (f *fakeGenerator) Ping(ctx context.Context) error {
	return f.err
}

type fakeExtractor struct {
	pages []extract.PageText
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) ([]extract.PageText, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) > 0 {
		return f.pages, nil
	}
	return []extract.PageText{{Index: 0, Text: string(data)}}, nil
}

func pageText(texts ...string) []extract.PageText {
	pages := make([]extract.PageText, 0, len(texts))
	for i, text := range texts {
		pages = append(pages, extract.PageText{Index: i, Text: text})
	}
	return pages
}
