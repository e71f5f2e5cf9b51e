package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	FileStore   FileStoreConfig  `json:"file_store"`
	AI          AIConfig         `json:"ai"`
	RAG         RAGConfig        `json:"rag"`
	Upload      UploadConfig     `json:"upload"`
	Jobs        JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	EmbedProvider  string      `json:"embed_provider"`
	EmbedModel     string      `json:"embed_model"`
	EmbedDimension int         `json:"embed_dimension"`
	MaxTokens      int         `json:"max_tokens"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	Data           interface{} `json:"data"`
	EmbedData      interface{} `json:"embed_data"`
}

type RAGConfig struct {
	ChunkSize        int     `json:"chunk_size"`
	ChunkOverlap     int     `json:"chunk_overlap"`
	DefaultMaxChunks int     `json:"default_max_chunks"`
	MaxChunksLimit   int     `json:"max_chunks_limit"`
	ScoreFloor       float32 `json:"score_floor"`
	IndexType        string  `json:"index_type"`
	QueryCacheSize   int     `json:"query_cache_size"`
	QueryCacheTTLMin int     `json:"query_cache_ttl_minutes"`
}

type UploadConfig struct {
	MaxSizeMB int64 `json:"max_size_mb"`
}

type JobsConfig struct {
	StaleIngestSpec   string `json:"stale_ingest_spec"`
	StaleIngestAgeMin int64  `json:"stale_ingest_age_minutes"`
	OrphanChunkSpec   string `json:"orphan_chunk_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedData == nil {
		cfg.AI.EmbedData = cfg.AI.Data
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 768
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 120
	}
	applyRAGDefaults(&cfg.RAG)
	if cfg.Upload.MaxSizeMB == 0 {
		cfg.Upload.MaxSizeMB = 50
	}
	if cfg.Jobs.StaleIngestSpec == "" {
		cfg.Jobs.StaleIngestSpec = "*/10 * * * *"
	}
	if cfg.Jobs.StaleIngestAgeMin == 0 {
		cfg.Jobs.StaleIngestAgeMin = 30
	}
	if cfg.Jobs.OrphanChunkSpec == "" {
		cfg.Jobs.OrphanChunkSpec = "30 3 * * *"
	}
	return &cfg, nil
}

func applyRAGDefaults(rag *RAGConfig) {
	if rag.ChunkSize == 0 {
		rag.ChunkSize = 500
	}
	if rag.ChunkOverlap == 0 {
		rag.ChunkOverlap = 50
	}
	if rag.ChunkOverlap >= rag.ChunkSize {
		rag.ChunkOverlap = rag.ChunkSize / 10
	}
	if rag.DefaultMaxChunks == 0 {
		rag.DefaultMaxChunks = 5
	}
	if rag.MaxChunksLimit == 0 {
		rag.MaxChunksLimit = 20
	}
	if rag.ScoreFloor == 0 {
		rag.ScoreFloor = 0.35
	}
	if rag.IndexType == "" {
		rag.IndexType = "pgvector"
	}
	if rag.QueryCacheSize == 0 {
		rag.QueryCacheSize = 4096
	}
	if rag.QueryCacheTTLMin == 0 {
		rag.QueryCacheTTLMin = 120
	}
}
