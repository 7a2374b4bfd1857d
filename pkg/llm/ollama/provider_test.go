package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"locus/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handle func(w http.ResponseWriter, req ollamaChatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handle(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChat(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req ollamaChatRequest) {
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, 0.05, req.Options.Temperature)
		assert.Equal(t, "assistant", req.Messages[1].Role)
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"hello"},"done":true}`)
	})

	p := NewOllamaProvider(srv.URL, "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "model", Content: "earlier"},
	}, llm.WithTemperature(0.05))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestStream(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req ollamaChatRequest) {
		assert.True(t, req.Stream)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	})

	p := NewOllamaProvider(srv.URL, "llama3")
	var chunks []string
	err := p.Stream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "status", body: "boom", code: http.StatusInternalServerError},
		{name: "error line", body: `{"error":"model not found"}` + "\n", code: http.StatusOK},
		{name: "truncated", body: `{"message":{"content":"a"},"done":false}` + "\n", code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, func(w http.ResponseWriter, _ ollamaChatRequest) {
				w.WriteHeader(tt.code)
				fmt.Fprint(w, tt.body)
			})
			p := NewOllamaProvider(srv.URL, "llama3")
			err := p.Stream(context.Background(), nil, func(string) error { return nil })
			assert.Error(t, err)
		})
	}

	t.Run("callback stops stream", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, _ ollamaChatRequest) {
			fmt.Fprintln(w, `{"message":{"content":"a"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"content":"b"},"done":true}`)
		})
		stop := errors.New("stop")
		p := NewOllamaProvider(srv.URL, "llama3")
		calls := 0
		err := p.Stream(context.Background(), nil, func(string) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}
