package gemini

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
	baseURL          = "https://generativelanguage.googleapis.com/v1beta"
	defaultModelName = "gemini-2.5-flash"
	defaultMaxTokens = 2048
)

func init() {
	core.RegisterProvider("gemini", newClient, "google")
}

type client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	defaults   core.Request
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	return &client{
		apiKey:     cfg.GeminiKey,
		model:      model,
		httpClient: webclient.NewDefault(120 * time.Second),
		defaults: core.Request{
			Temperature: orFloat(cfg.Temperature, 0.2),
			MaxTokens:   orInt(cfg.MaxTokens, defaultMaxTokens),
		},
	}, nil
}

func (c *client) Name() string { return "gemini" }

func (c *client) Complete(ctx context.Context, req core.Request) (*core.Completion, error) {
	merged := c.merge(req)

	generationConfig := map[string]interface{}{
		"temperature":     merged.Temperature,
		"maxOutputTokens": merged.MaxTokens,
	}
	if merged.JSONMode {
		generationConfig["responseMimeType"] = "application/json"
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": merged.Prompt}},
			},
		},
		"generationConfig": generationConfig,
	}
	if merged.SystemPrompt != "" {
		payload["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": merged.SystemPrompt}},
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, c.model, c.apiKey)

	b, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.TransportError("gemini", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.TransportError("gemini", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.StatusError("gemini", resp.StatusCode, body)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.TransportError("gemini", err)
	}

	var text strings.Builder
	for _, cand := range result.Candidates {
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &core.ProviderError{Provider: "gemini", Kind: core.Transient, Message: "no candidates in response"}
	}

	return &core.Completion{
		Text:         text.String(),
		Model:        c.model,
		InputTokens:  result.UsageMetadata.PromptTokenCount,
		OutputTokens: result.UsageMetadata.CandidatesTokenCount,
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
