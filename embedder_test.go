package arbiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIEmbedderDefaults(t *testing.T) {
	e := NewOpenAIEmbedder("key")
	if e.Dimensions() != DimensionsTextEmbedding3S {
		t.Errorf("expected default dimensions %d, got %d", DimensionsTextEmbedding3S, e.Dimensions())
	}

	e = NewOpenAIEmbedder("key", WithEmbeddingModel(ModelTextEmbedding3Large, DimensionsTextEmbedding3L))
	if e.Dimensions() != DimensionsTextEmbedding3L {
		t.Errorf("expected dimensions %d, got %d", DimensionsTextEmbedding3L, e.Dimensions())
	}
}

func TestOpenAIEmbedderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", auth)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Input != "hello" {
			t.Errorf("unexpected input: %q", req.Input)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		})
	}))
	defer server.Close()

	e := NewOpenAIEmbedder("test-key", WithEmbedderBaseURL(server.URL))

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected embedding: %v", vec)
	}
}

func TestOpenAIEmbedderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key", "type": "auth"},
		})
	}))
	defer server.Close()

	e := NewOpenAIEmbedder("bad-key", WithEmbedderBaseURL(server.URL))

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error for API failure")
	}
}

func TestOpenAIEmbedderEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	e := NewOpenAIEmbedder("key", WithEmbedderBaseURL(server.URL))

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error when no embedding is returned")
	}
}
