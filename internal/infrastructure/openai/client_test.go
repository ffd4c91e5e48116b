package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  Bring your insurance card  "}},
			},
		})
	}))
	defer server.Close()

	client := New(Config{
		APIKey:    "test-key",
		Model:     "gpt-4o-mini",
		BaseURL:   server.URL,
		MaxTokens: 40,
	})

	text, err := client.Suggest(context.Background(), "Dentist")
	require.NoError(t, err)
	assert.Equal(t, "Bring your insurance card", text)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Equal(t, 40, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "Dentist")
}

func TestSuggestNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	_, err := client.Suggest(context.Background(), "Dentist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSuggestEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	_, err := client.Suggest(context.Background(), "Dentist")
	assert.Error(t, err)
}

func TestSuggestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})

	_, err := client.Suggest(context.Background(), "Dentist")
	assert.Error(t, err)
}

func TestSuggestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := New(Config{BaseURL: server.URL})

	_, err := client.Suggest(context.Background(), "Dentist")
	assert.Error(t, err)
}
