package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(chatResponse{
			Model:   req.Model,
			Message: ChatMessage{Role: "assistant", Content: "hello there"},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 5*time.Second)
	reply, err := client.Chat(context.Background(), []ChatMessage{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestChatEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: ChatMessage{Role: "assistant", Content: "   "},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 5*time.Second)
	_, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestChatUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 5*time.Second)
	_, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "model not found")
}

func TestChatTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 20*time.Millisecond)
	_, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestChatConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 5*time.Second)
	_, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	assert.ErrorIs(t, err, ErrConnection)
}

func TestEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, "some text", req.Prompt)

		json.NewEncoder(w).Encode(embedResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 3, 5*time.Second)
	vec, err := client.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedEmptyInput(t *testing.T) {
	client := NewClient("http://localhost:0", "llama3", "all-minilm", 384, time.Second)

	_, err := client.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = client.Embed(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 5*time.Second)
	_, err := client.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestEmbedContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(srv.URL, "llama3", "all-minilm", 384, 5*time.Second)
	_, err := client.Embed(ctx, "text")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestModelInfo(t *testing.T) {
	client := NewClient("http://localhost:11434/", "llama3", "all-minilm", 384, time.Second)
	info := client.ModelInfo()
	assert.Equal(t, "http://localhost:11434", info["ollama_url"])
	assert.Equal(t, "llama3", info["model"])
	assert.Equal(t, "all-minilm", info["embed_model"])
	assert.Equal(t, 384, client.Dimension())
}

func TestStatusErrorFormat(t *testing.T) {
	err := &StatusError{StatusCode: 503, Body: "overloaded"}
	assert.Equal(t, "ollama API error [503]: overloaded", err.Error())
}
