package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ava-verify/ava/src/ai/core"
	"github.com/ava-verify/ava/src/webclient"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModelName = "gpt-4o-mini"
	defaultMaxTokens = 2048
)

func init() {
	core.RegisterProvider("openai", newClient, "openrouter")
}

type client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	defaults   core.Request
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("openai: API key not configured")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &client{
		apiKey:     cfg.OpenAIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: webclient.NewDefault(120 * time.Second),
		defaults: core.Request{
			Temperature: orFloat(cfg.Temperature, 0.2),
			MaxTokens:   orInt(cfg.MaxTokens, defaultMaxTokens),
		},
	}, nil
}

func (c *client) Name() string { return "openai" }

func (c *client) Complete(ctx context.Context, req core.Request) (*core.Completion, error) {
	merged := c.merge(req)

	messages := []map[string]string{}
	if merged.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": merged.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": merged.Prompt})

	payload := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": merged.Temperature,
		"max_tokens":  merged.MaxTokens,
	}
	if merged.JSONMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	b, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.TransportError("openai", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.TransportError("openai", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.StatusError("openai", resp.StatusCode, body)
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.TransportError("openai", err)
	}
	if len(result.Choices) == 0 {
		return nil, &core.ProviderError{Provider: "openai", Kind: core.Transient, Message: "no choices in response"}
	}

	return &core.Completion{
		Text:         result.Choices[0].Message.Content,
		Model:        result.Model,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
	}, nil
}

func (c *client) merge(req core.Request) core.Request {
	if req.Temperature == 0 {
		req.Temperature = c.defaults.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.defaults.MaxTokens
	}
	return req
}

func orInt(v, d int) int {
	if v != 0 {
		return v
	}
	return d
}

func orFloat(v, d float64) float64 {
	if v != 0 {
		return v
	}
	return d
}
