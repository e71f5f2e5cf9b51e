package model

type ModelInfo struct {
	LLMModel       string `json:"llm_model"`
	EmbeddingModel string `json:"embedding_model"`
	ChunksUsed     int    `json:"chunks_used"`
	ContextLength  int    `json:"total_context_length"`
	Grounded       bool   `json:"grounded"`
}

type AnswerResult struct {
	Answer           string           `json:"answer"`
	Sources          []RetrievedChunk `json:"sources"`
	Question         string           `json:"question"`
	ModelInfo        ModelInfo        `json:"model_info"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}
