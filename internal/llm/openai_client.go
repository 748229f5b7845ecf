package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type provider struct {
	endpoint     string
	defaultModel string
	jsonMode     bool
	needsKey     bool
}

var providers = map[string]provider{
	"openai":     {endpoint: "https://api.openai.com/v1", defaultModel: "gpt-4o-mini", jsonMode: true, needsKey: true},
	"groq":       {endpoint: "https://api.groq.com/openai/v1", defaultModel: "llama-3.1-8b-instant", needsKey: true},
	"openrouter": {endpoint: "https://openrouter.ai/api/v1", defaultModel: "meta-llama/llama-3.1-8b-instruct", needsKey: true},
	"together":   {endpoint: "https://api.together.xyz/v1", defaultModel: "meta-llama/Llama-3-8b-chat-hf", needsKey: true},
	"deepseek":   {endpoint: "https://api.deepseek.com/v1", defaultModel: "deepseek-chat", jsonMode: true, needsKey: true},
	"github":     {endpoint: "https://models.inference.ai.azure.com", defaultModel: "meta-llama/llama-3.1-8b-instruct", needsKey: true},
	"ollama":     {endpoint: "http://localhost:11434", defaultModel: "llama3.1", jsonMode: true},
}

type Options struct {
	Provider string
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// New builds a client for opts.Provider; unknown providers are treated as
// OpenAI-compatible endpoints.
func New(opts Options) Client {
	p, ok := providers[opts.Provider]
	if !ok {
		log.Printf("[llm] Unknown provider %q, using OpenAI-compatible defaults", opts.Provider)
		p = providers["openai"]
	}
	if opts.Endpoint != "" {
		p.endpoint = opts.Endpoint
	}
	if opts.Model == "" {
		opts.Model = p.defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	httpc := &http.Client{Timeout: opts.Timeout}
	if opts.Provider == "ollama" {
		return &ollamaClient{endpoint: p.endpoint, model: opts.Model, httpc: httpc}
	}
	return &openAI{
		endpoint: p.endpoint,
		key:      opts.APIKey,
		model:    opts.Model,
		jsonMode: p.jsonMode,
		needsKey: p.needsKey,
		httpc:    httpc,
	}
}

type openAI struct {
	endpoint string
	key      string
	model    string
	jsonMode bool
	needsKey bool
	httpc    *http.Client
}

func (c *openAI) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) string {
	if c.needsKey && c.key == "" {
		return ReplyNotConfigured
	}

	reqBody := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	if c.jsonMode && wantsJSON(messages) {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}
	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.endpoint, "/")+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		log.Printf("[llm] build request: %v", err)
		return ReplyUnavailable
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Printf("[llm] request failed: %v", err)
		return ReplyUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Printf("[llm] %s returned %d: %s", c.endpoint, resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusUnauthorized {
			return "AI service authentication failed. Please check LLM_API_KEY."
		}
		return ReplyUnavailable
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || len(out.Choices) == 0 {
		log.Printf("[llm] decode response: %v (choices=%d)", err, len(out.Choices))
		return ReplyUnavailable
	}
	return contentText(out.Choices[0].Message.Content)
}

// contentText flattens a message content that some providers return as an
// object instead of a string.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ReplyEmpty
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return ReplyEmpty
		}
		return s
	}
	return string(raw)
}

type ollamaClient struct {
	endpoint string
	model    string
	httpc    *http.Client
}

func (c *ollamaClient) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) string {
	reqBody := map[string]any{
		"model":    c.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
	if wantsJSON(messages) {
		reqBody["format"] = "json"
	}
	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.endpoint, "/")+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return ReplyUnavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Printf("[llm] ollama request failed: %v", err)
		return "Ollama is not running. Please start Ollama with: ollama serve"
	}
	defer resp.Body.Close()

	var out struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("I'm having trouble connecting to Ollama. Status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("[llm] ollama decode: %v", err)
		return ReplyUnavailable
	}
	return contentText(out.Message.Content)
}
