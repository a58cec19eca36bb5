package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ava-verify/ava/src/search/core"
	"github.com/ava-verify/ava/src/webclient"
)

const (
	baseURL      = "https://api.tavily.com"
	defaultDepth = "basic"
)

func init() {
	core.RegisterBackend("tavily", newBackend)
}

type backend struct {
	apiKey     string
	depth      string
	httpClient *http.Client
}

func newBackend(cfg core.FactoryConfig) (core.Backend, error) {
	if cfg.TavilyKey == "" {
		return nil, fmt.Errorf("tavily: API key not configured")
	}
	depth := strings.TrimSpace(cfg.Depth)
	if depth == "" {
		depth = defaultDepth
	}
	return &backend{
		apiKey:     cfg.TavilyKey,
		depth:      depth,
		httpClient: webclient.NewDefault(30 * time.Second),
	}, nil
}

func (b *backend) Name() string { return "tavily" }

func (b *backend) Search(ctx context.Context, query string, maxResults int) ([]core.Result, error) {
	payload := map[string]interface{}{
		"query":              query,
		"search_depth":       b.depth,
		"max_results":        maxResults,
		"include_answer":     false,
		"include_raw_content": false,
	}
	if topic, timeRange := timeSensitivity(query); topic != "" {
		payload["topic"] = topic
		if timeRange != "" {
			payload["time_range"] = timeRange
		}
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/search", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily API error %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var result struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}

	out := make([]core.Result, 0, len(result.Results))
	for _, r := range result.Results {
		out = append(out, core.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}

// timeSensitivity mirrors the query heuristics for news-ish claims:
// time-sensitive wording narrows the search window.
func timeSensitivity(query string) (topic, timeRange string) {
	q := strings.ToLower(query)

	dayWords := []string{"today", "yesterday", "just", "breaking"}
	for _, w := range dayWords {
		if strings.Contains(q, w) {
			return "news", "day"
		}
	}

	weekWords := []string{
		"this week", "this month", "latest", "recent", "now", "current",
		"price", "stock", "market", "election", "announced",
	}
	for _, w := range weekWords {
		if strings.Contains(q, w) {
			return "news", "week"
		}
	}
	return "", ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
