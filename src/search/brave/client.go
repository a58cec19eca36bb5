package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ava-verify/ava/src/search/core"
	"github.com/ava-verify/ava/src/webclient"
)

const baseURL = "https://api.search.brave.com/res/v1/web/search"

func init() {
	core.RegisterBackend("brave", newBackend)
}

type backend struct {
	apiKey     string
	httpClient *http.Client
}

func newBackend(cfg core.FactoryConfig) (core.Backend, error) {
	if cfg.BraveKey == "" {
		return nil, fmt.Errorf("brave: API key not configured")
	}
	return &backend{
		apiKey:     cfg.BraveKey,
		httpClient: webclient.NewDefault(30 * time.Second),
	}, nil
}

func (b *backend) Name() string { return "brave" }

func (b *backend) Search(ctx context.Context, query string, maxResults int) ([]core.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	if maxResults > 0 {
		params.Set("count", strconv.Itoa(maxResults))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

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
		msg := raw
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("brave API error %d: %s", resp.StatusCode, msg)
	}

	var result struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}

	out := make([]core.Result, 0, len(result.Web.Results))
	for i, r := range result.Web.Results {
		// Brave reports no relevance score; use rank position so the
		// aggregator's relevance tie-break stays meaningful.
		out = append(out, core.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
			Score:   1.0 / float64(i+1),
		})
	}
	return out, nil
}
