package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampel/internal/retry"
)

func fastRetry() retry.Options {
	return retry.Options{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2.0}
}

func TestGenerateSendsOllamaRequest(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"response": "  OK\n"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 30*time.Second)
	client.retryOpts = fastRetry()

	response, err := client.Generate(context.Background(), "llama3:8b", "check this", 0)
	require.NoError(t, err)

	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "llama3:8b", gotBody["model"])
	assert.Equal(t, "check this", gotBody["prompt"])
	assert.Equal(t, false, gotBody["stream"])
	assert.Equal(t, "OK", response)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "OK"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 30*time.Second)
	client.retryOpts = fastRetry()

	response, err := client.Generate(context.Background(), "llama3:8b", "p", 0)
	require.NoError(t, err)
	assert.Equal(t, "OK", response)
	assert.Equal(t, 3, attempts)
}

func TestGenerateClientErrorNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 30*time.Second)
	client.retryOpts = fastRetry()

	_, err := client.Generate(context.Background(), "missing:1b", "p", 0)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.False(t, retry.IsRetryable(err))
}

func TestGenerateConnectionErrorExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, 30*time.Second)
	client.retryOpts = fastRetry()

	_, err := client.Generate(context.Background(), "llama3:8b", "p", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM connection error")
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, 30*time.Second)
	assert.True(t, client.IsAvailable(context.Background()))

	server.Close()
	assert.False(t, client.IsAvailable(context.Background()))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "llama3:8b"},
				{"name": "qwen2.5:7b"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 30*time.Second)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:8b", "qwen2.5:7b"}, models)
}
