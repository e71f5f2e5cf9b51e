package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  hello  "}},
			},
		})
	}))
	defer server.Close()

	p := &openAIProvider{apiKey: "test-key", baseURL: server.URL}
	out, err := p.Generate(context.Background(), "gpt-test", "hi", GenOptions{Temperature: 0.2})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestOpenAIEmbedBatch_HonorsResponseIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"a", "b"}, req.Input)
		// out-of-order response entries
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	p := &openAIEmbedProvider{apiKey: "test-key", baseURL: server.URL}
	vecs, err := p.EmbedBatch(context.Background(), "embed-test", []string{"a", "b"}, TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAI_BackendErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	p := &openAIProvider{apiKey: "test-key", baseURL: server.URL}
	_, err := p.Generate(context.Background(), "gpt-test", "hi", GenOptions{})
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestOpenAI_MissingKeyIsUnavailable(t *testing.T) {
	p := &openAIProvider{baseURL: "http://localhost:1"}
	_, err := p.Generate(context.Background(), "gpt-test", "hi", GenOptions{})
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestProviderRegistry(t *testing.T) {
	_, err := NewProvider("openai", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	_, err = NewEmbedProvider("openai", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	_, err = NewProvider("nope", map[string]interface{}{})
	require.Error(t, err)
	_, err = NewProvider("", nil)
	require.Error(t, err)
}
