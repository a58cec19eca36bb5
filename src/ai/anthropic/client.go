package anthropic

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
	baseURL          = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
	defaultModelName = "claude-3-5-haiku-latest"
	defaultMaxTokens = 2048
)

func init() {
	core.RegisterProvider("anthropic", newClient, "claude")
}

type client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	defaults   core.Request
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	return &client{
		apiKey:     cfg.AnthropicKey,
		model:      model,
		httpClient: webclient.NewDefault(120 * time.Second),
		defaults: core.Request{
			Temperature: orFloat(cfg.Temperature, 0.2),
			MaxTokens:   orInt(cfg.MaxTokens, defaultMaxTokens),
		},
	}, nil
}

func (c *client) Name() string { return "anthropic" }

func (c *client) Complete(ctx context.Context, req core.Request) (*core.Completion, error) {
	merged := c.merge(req)

	system := merged.SystemPrompt
	if merged.JSONMode {
		// The Messages API has no response_format; JSON is enforced
		// through the system prompt.
		system += "\n\nRespond with a single valid JSON object and nothing else. No markdown fences, no commentary."
	}

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": merged.Prompt},
		},
		"system":      system,
		"max_tokens":  merged.MaxTokens,
		"temperature": merged.Temperature,
	}

	b, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.TransportError("anthropic", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.TransportError("anthropic", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.StatusError("anthropic", resp.StatusCode, body)
	}

	var result struct {
		Model   string `json:"model"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.TransportError("anthropic", err)
	}
	if len(result.Content) == 0 {
		return nil, &core.ProviderError{Provider: "anthropic", Kind: core.Transient, Message: "no content in response"}
	}

	return &core.Completion{
		Text:         result.Content[0].Text,
		Model:        result.Model,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
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
