package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	text := "```json\n{\"summary\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["summary"] != "value" {
		t.Errorf("expected summary='value', got %v", result["summary"])
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	if ParseJSONResponse("not json at all") != nil {
		t.Error("expected nil for invalid JSON")
	}
	if ParseJSONResponse("  \n ") != nil {
		t.Error("expected nil for blank input")
	}
}

func TestStringAndStrings(t *testing.T) {
	m := map[string]any{
		"summary": "  Busy month ",
		"count":   3.0,
		"items":   []any{"one", " ", 7.0, "two "},
	}
	assert.Equal(t, "Busy month", String(m, "summary", ""))
	assert.Equal(t, "fallback", String(m, "count", "fallback"))
	assert.Equal(t, "fallback", String(m, "missing", "fallback"))
	assert.Equal(t, []string{"one", "two"}, Strings(m, "items"))
	assert.Nil(t, Strings(m, "summary"))
}

func TestOpenAIProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 256, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: "assistant", Content: " {\"summary\":\"ok\"} "},
			}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("gpt-4o-mini", "test-key", server.URL, 5*time.Second)
	require.True(t, p.IsConfigured())

	out, err := p.Generate(context.Background(), "prompt", 256)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)
}

func TestOpenAIProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("gpt-4o-mini", "test-key", server.URL, 5*time.Second)
	_, err := p.Generate(context.Background(), "prompt", 64)
	assert.Error(t, err)
}

func TestOpenAIProviderWithoutKey(t *testing.T) {
	p := NewOpenAIProvider("", "", "", 0)
	assert.False(t, p.IsConfigured())
	_, err := p.Generate(context.Background(), "prompt", 64)
	assert.Error(t, err)
}

func TestAnthropicProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "{\"summary\":\"from claude\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 8}
		}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider("", "test-key", server.URL, 5*time.Second)
	out, err := p.Generate(context.Background(), "prompt", 128)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"from claude"}`, out)
}

func TestAnthropicProviderWithoutKey(t *testing.T) {
	p := NewAnthropicProvider("", "", "", 0)
	assert.False(t, p.IsConfigured())
	_, err := p.Generate(context.Background(), "prompt", 64)
	assert.Error(t, err)
}

func TestOllamaProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"}]}`))
		case "/api/chat":
			_, _ = w.Write([]byte(`{"message":{"content":"{\"summary\":\"local\"}"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewOllamaProvider("qwen2.5:7b", server.URL, 5*time.Second)
	assert.True(t, p.IsConfigured())

	out, err := p.Generate(context.Background(), "prompt", 128)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"local"}`, out)

	missing := NewOllamaProvider("llama3", server.URL, 5*time.Second)
	assert.False(t, missing.IsConfigured())
}

func TestCreateProviderNone(t *testing.T) {
	assert.Nil(t, CreateProvider(Settings{Provider: "none"}))
	assert.Nil(t, CreateProvider(Settings{Provider: "bogus"}))
}

func TestCreateProviderOpenAIWithoutKey(t *testing.T) {
	t.Setenv("GOVPULSE_TEST_EMPTY_KEY", "")
	assert.Nil(t, CreateProvider(Settings{Provider: "openai", APIKeyEnv: "GOVPULSE_TEST_EMPTY_KEY"}))
}

func TestCreateProviderOpenAIWithKey(t *testing.T) {
	t.Setenv("GOVPULSE_TEST_KEY", "sk-test")
	p := CreateProvider(Settings{Provider: "openai", APIKeyEnv: "GOVPULSE_TEST_KEY", OpenAIModel: "gpt-4o"})
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.Name())
}

func TestCreateProviderKeyEnvDefaultsPerProvider(t *testing.T) {
	t.Setenv(OpenAIKeyEnv, "sk-openai")
	t.Setenv(AnthropicKeyEnv, "")
	assert.Nil(t, CreateProvider(Settings{Provider: "anthropic"}), "anthropic must not pick up the OpenAI key")

	t.Setenv(AnthropicKeyEnv, "sk-ant")
	p := CreateProvider(Settings{Provider: "anthropic"})
	require.NotNil(t, p)
	require.IsType(t, &AnthropicProvider{}, p)
	assert.Equal(t, "sk-ant", p.(*AnthropicProvider).apiKey)

	p = CreateProvider(Settings{Provider: "openai"})
	require.NotNil(t, p)
	assert.Equal(t, "sk-openai", p.(*OpenAIProvider).apiKey)
}

func TestCreateProviderKeyEnvOverride(t *testing.T) {
	t.Setenv(AnthropicKeyEnv, "")
	t.Setenv("GOVPULSE_CLAUDE_KEY", "sk-custom")
	p := CreateProvider(Settings{Provider: "claude", APIKeyEnv: "GOVPULSE_CLAUDE_KEY"})
	require.NotNil(t, p)
	assert.Equal(t, "sk-custom", p.(*AnthropicProvider).apiKey)
}
