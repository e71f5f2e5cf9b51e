package model

// Chunk is the unit of embedding and retrieval: a bounded slice of a
// document's extracted text together with its vector.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Seq        int       `json:"seq"`
	Content    string    `json:"content"`
	CharStart  int       `json:"char_start"`
	CharEnd    int       `json:"char_end"`
	Embedding  []float32 `json:"-"`
	ModelName  string    `json:"model_name"`
}

// RetrievedChunk is a ranked similarity-search result.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Seq        int     `json:"seq"`
	Score      float32 `json:"similarity_score"`
	Snippet    string  `json:"snippet"`
}
