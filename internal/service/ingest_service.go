package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docask/docask/internal/ai"
	"github.com/docask/docask/internal/chunker"
	"github.com/docask/docask/internal/extract"
	"github.com/docask/docask/internal/filestore"
	"github.com/docask/docask/internal/model"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/vectorindex"
)

const (
	contentPreviewRunes = 500
	embedBatchSize      = 64
)

// IngestService owns the document pipeline: accept an upload, then
// extract, chunk, embed, and index it in the background. A document
// either completes with all its chunks indexed or fails with zero
// chunks; the rollback after a stage failure keeps that invariant.
type IngestService struct {
	docRepo   DocumentStore
	index     vectorindex.Index
	extractor extract.TextExtractor
	splitter  *chunker.Splitter
	embedder  ai.IEmbedder
	store     filestore.Store
	locks     *DocLocks
	maxBytes  int64
	async     bool
}

func NewIngestService(
	docRepo DocumentStore,
	index vectorindex.Index,
	extractor extract.TextExtractor,
	splitter *chunker.Splitter,
	embedder ai.IEmbedder,
	store filestore.Store,
	locks *DocLocks,
	maxBytes int64,
) *IngestService {
	return &IngestService{
		docRepo:   docRepo,
		index:     index,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		locks:     locks,
		maxBytes:  maxBytes,
		async:     true,
	}
}

// SetSynchronous makes Upload run the pipeline inline before
// returning. Tests use this to avoid racing the background goroutine.
func (s *IngestService) SetSynchronous() {
	s.async = false
}

// Upload validates the file, records it as pending, stores the raw
// bytes, and schedules ingestion. The returned document is the pending
// record; callers poll the document list for the final status.
func (s *IngestService) Upload(ctx context.Context, userID, filename, contentType string, data []byte) (*model.Document, error) {
	if err := s.validateUpload(filename, contentType, data); err != nil {
		return nil, err
	}
	doc := &model.Document{
		ID:       uuid.NewString(),
		UserID:   userID,
		Filename: filename,
		ByteSize: int64(len(data)),
		Status:   model.DocumentStatusPending,
		Ctime:    time.Now().UnixMilli(),
	}
	reader := readSeekNopCloser{bytes.NewReader(data)}
	if err := s.store.Save(ctx, storeKey(doc.ID), reader, doc.ByteSize); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		_ = s.store.Delete(ctx, storeKey(doc.ID))
		return nil, err
	}
	if s.async {
		go s.Process(context.Background(), userID, doc.ID, data)
	} else {
		s.Process(ctx, userID, doc.ID, data)
	}
	return doc, nil
}

func (s *IngestService) validateUpload(filename, contentType string, data []byte) error {
	isPDF := strings.EqualFold(contentType, "application/pdf") ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
	if !isPDF {
		return fmt.Errorf("%w: only pdf uploads are accepted", appErr.ErrInvalidDocument)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", appErr.ErrInvalidDocument)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", appErr.ErrInvalidDocument, s.maxBytes)
	}
	return nil
}

// Process runs the ingestion pipeline for a pending document over the
// uploaded bytes. The filestore copy is retention only; the pipeline
// never reads it back, so stores without read support still ingest.
// Process is idempotent at the claim step: once another worker moved
// the document past pending, it returns without touching it.
func (s *IngestService) Process(ctx context.Context, userID, docID string, data []byte) {
	unlock := s.locks.lock(docID)
	defer unlock()

	logger := logutil.GetLogger(ctx).With(
		zap.String("user_id", userID), zap.String("document_id", docID))
	if err := s.docRepo.MarkProcessing(ctx, userID, docID); err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return
		}
		logger.Error("claim document for processing failed", zap.Error(err))
		return
	}
	start := time.Now()
	chunkCount, preview, stage, err := s.runPipeline(ctx, userID, docID, data)
	if err != nil {
		logger.Error("document ingestion failed",
			zap.String("stage", stage), zap.Error(err))
		s.rollback(ctx, userID, docID)
		if err := s.store.Delete(ctx, storeKey(docID)); err != nil {
			logger.Warn("delete stored file failed", zap.Error(err))
		}
		message := fmt.Sprintf("%s: %v", stage, err)
		if err := s.docRepo.MarkFailed(ctx, userID, docID, message); err != nil {
			logger.Error("mark document failed errored", zap.Error(err))
		}
		return
	}
	if err := s.docRepo.MarkCompleted(ctx, userID, docID, chunkCount, preview); err != nil {
		logger.Error("mark document completed errored", zap.Error(err))
		s.rollback(ctx, userID, docID)
		return
	}
	logger.Info("document ingested",
		zap.Int("chunks", chunkCount),
		zap.Duration("cost", time.Since(start)))
}

func (s *IngestService) runPipeline(ctx context.Context, userID, docID string, data []byte) (int, string, string, error) {
	pages, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return 0, "", "extract", err
	}
	text := extract.JoinPages(pages)
	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return 0, "", "chunk", fmt.Errorf("%w: document produced no text", appErr.ErrExtraction)
	}
	chunks := make([]*model.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, &model.Chunk{
			ID:         chunkID(docID, piece.Seq),
			DocumentID: docID,
			UserID:     userID,
			Seq:        piece.Seq,
			Content:    piece.Text,
			CharStart:  piece.CharStart,
			CharEnd:    piece.CharEnd,
			ModelName:  s.embedder.ModelName(),
		})
	}
	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, "", "embed", err
	}
	if err := s.index.Upsert(ctx, chunks); err != nil {
		return 0, "", "index", err
	}
	return len(chunks), truncateRunes(text, contentPreviewRunes), "", nil
}

func (s *IngestService) embedChunks(ctx context.Context, chunks []*model.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}
		vecs, err := s.embedder.EmbedBatch(ctx, texts, ai.TaskTypeDocument)
		if err != nil {
			if errors.Is(err, ai.ErrUnavailable) {
				return fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
			}
			return err
		}
		for i, vec := range vecs {
			chunks[start+i].Embedding = vec
		}
	}
	return nil
}

// rollback removes any chunks a partially finished pipeline indexed.
// Failed documents must hold zero retrievable chunks.
func (s *IngestService) rollback(ctx context.Context, userID, docID string) {
	if err := s.index.DeleteByDocument(ctx, userID, docID); err != nil {
		logutil.GetLogger(ctx).Error("rollback chunks failed",
			zap.String("document_id", docID), zap.Error(err))
	}
}

func chunkID(docID string, seq int) string {
	return fmt.Sprintf("%s_%05d", docID, seq)
}

func storeKey(docID string) string {
	return docID + ".pdf"
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error {
	return nil
}
