package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Settings selects and configures a provider.
type Settings struct {
	Provider       string
	Model          string
	OllamaURL      string
	OpenAIBaseURL  string
	AnthropicModel string
	OpenAIModel    string
	APIKeyEnv      string // overrides the provider's default key variable
	Timeout        time.Duration
}

// Default environment variables holding provider API keys.
const (
	OpenAIKeyEnv    = "OPENAI_API_KEY"
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (o *OllamaProvider) Name() string { return "ollama" }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	logrus.WithField("model", o.Model).Warn("Ollama model not found")
	return false
}

// Generate sends a prompt to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"num_predict": maxTokens,
			"temperature": 0.3,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Message.Content, nil
}

// CreateProvider creates an LLM provider based on configuration.
// It returns nil when no provider is selected or the selected one is unavailable;
// callers then use the template report path.
func CreateProvider(s Settings) Provider {
	var p Provider
	switch strings.ToLower(s.Provider) {
	case "", "none":
		logrus.Info("No LLM provider selected; reports use templates")
		return nil
	case "ollama":
		p = NewOllamaProvider(s.Model, s.OllamaURL, s.Timeout)
	case "openai":
		p = NewOpenAIProvider(firstNonEmpty(s.OpenAIModel, s.Model), os.Getenv(firstNonEmpty(s.APIKeyEnv, OpenAIKeyEnv)), s.OpenAIBaseURL, s.Timeout)
	case "anthropic", "claude":
		p = NewAnthropicProvider(firstNonEmpty(s.AnthropicModel, s.Model), os.Getenv(firstNonEmpty(s.APIKeyEnv, AnthropicKeyEnv)), "", s.Timeout)
	default:
		logrus.WithField("provider", s.Provider).Warn("Unknown LLM provider; reports use templates")
		return nil
	}

	if !p.IsConfigured() {
		logrus.WithField("provider", p.Name()).Warn("LLM provider not available; reports use templates")
		return nil
	}
	logrus.WithField("provider", p.Name()).Info("Using LLM provider for report generation")
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
