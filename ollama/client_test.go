package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.GetModel())
	assert.Equal(t, DefaultHost, c.BaseURL())

	c.SetModel("qwen3:8b")
	assert.Equal(t, "qwen3:8b", c.GetModel())
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost", "m")
	assert.Error(t, err)
}

func TestChatStreamsChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, chunk := range []string{"Hel", "lo"} {
			_ = enc.Encode(api.ChatResponse{Model: req.Model, Message: api.Message{Role: "assistant", Content: chunk}})
		}
		_ = enc.Encode(api.ChatResponse{Model: req.Model, Done: true})
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "test-model")
	require.NoError(t, err)

	var sb strings.Builder
	err = c.Chat(context.Background(), []api.Message{{Role: "user", Content: "hi"}}, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", sb.String())
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.ListResponse{Models: []api.ListModelResponse{
			{Name: "llama3.1:latest", Size: 42},
		}})
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "")
	require.NoError(t, err)

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3.1:latest", models[0].Name)
	assert.Equal(t, int64(42), models[0].Size)
	assert.Equal(t, "ollama", models[0].Provider)
	assert.NoError(t, c.Ping(context.Background()))
}
