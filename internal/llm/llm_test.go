package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoKeyDisablesArbitration(t *testing.T) {
	for _, p := range []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ""} {
		c, err := New(context.Background(), Options{Provider: p})
		require.NoError(t, err)
		assert.Nil(t, c)
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Options{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, c.Provider())

	c, err = New(ctx, Options{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, c.Provider())

	c, err = New(ctx, Options{Provider: "gemini", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, c.Provider())

	_, err = New(ctx, Options{Provider: "mystery", APIKey: "k"})
	assert.ErrorContains(t, err, `unknown ai provider "mystery"`)
}

func TestAnthropic_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body["system"])
		assert.Equal(t, 0.2, body["temperature"])
		assert.EqualValues(t, 256, body["max_tokens"])

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": `{"template":"hero_gift"}`}},
		})
	}))
	defer server.Close()

	c := NewAnthropic(Options{APIKey: "k", BaseURL: server.URL, Temperature: 0.2})
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "pick", MaxTokens: 256, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"template":"hero_gift"}`, out)
}

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])
		assert.Equal(t, 0.2, body["temperature"])
		assert.EqualValues(t, 512, body["max_completion_tokens"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
		msgs, ok := body["messages"].([]any)
		require.True(t, ok)
		assert.Len(t, msgs, 2)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-test",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"template\":\"hero_value\"}"}
			}]
		}`))
	}))
	defer server.Close()

	c := NewOpenAI(Options{APIKey: "k", Model: "gpt-test", BaseURL: server.URL + "/v1/", Temperature: 0.2})
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "pick", MaxTokens: 512, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"template":"hero_value"}`, out)
}

func TestOpenAI_ServerErrorIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c := NewOpenAI(Options{APIKey: "k", BaseURL: server.URL + "/v1/"})
	_, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	assert.ErrorContains(t, err, "openai chat completion")
}

func TestGemini_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		cfg, ok := body["generationConfig"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "application/json", cfg["responseMimeType"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"template\":\"hero_guide\"}"}]}}]}`))
	}))
	defer server.Close()

	c, err := NewGemini(context.Background(), Options{APIKey: "k", Model: "gemini-test", BaseURL: server.URL + "/"})
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "pick", MaxTokens: 512, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"template":"hero_guide"}`, out)
}
