package model

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Filename       string `json:"filename"`
	ByteSize       int64  `json:"byte_size"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
	ChunkCount     int    `json:"chunk_count"`
	Ctime          int64  `json:"ctime"`
	Ptime          int64  `json:"ptime,omitempty"`
}

type OwnerStats struct {
	TotalDocuments int            `json:"total_documents"`
	TotalChunks    int            `json:"total_chunks"`
	TotalBytes     int64          `json:"total_bytes"`
	CountsByStatus map[string]int `json:"counts_by_status"`
}
