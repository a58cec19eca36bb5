package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ava-verify/ava/src/core/types"
)

// Aggregator fans a query out to all enabled backends concurrently,
// merges the hits, and ranks them by source tier then backend-reported
// relevance. A backend that errors or times out is dropped; partial
// evidence is acceptable and an empty result set is not an error.
type Aggregator struct {
	backends  []Backend
	timeout   time.Duration
	sanitizer *bluemonday.Policy
}

func NewAggregator(backends []Backend, perBackendTimeout time.Duration) *Aggregator {
	if perBackendTimeout <= 0 {
		perBackendTimeout = 15 * time.Second
	}
	return &Aggregator{
		backends:  backends,
		timeout:   perBackendTimeout,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Search returns up to maxResults pieces of evidence, best-ranked first.
func (a *Aggregator) Search(ctx context.Context, query string, maxResults int) []types.Evidence {
	if len(a.backends) == 0 {
		return nil
	}

	type hit struct {
		backend string
		results []Result
	}

	hits := make(chan hit, len(a.backends))
	var wg sync.WaitGroup

	for _, b := range a.backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()

			bctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			results, err := b.Search(bctx, query, maxResults)
			if err != nil {
				zap.S().Warnw("search backend dropped", "backend", b.Name(), "error", err)
				return
			}
			hits <- hit{backend: b.Name(), results: results}
		}(b)
	}

	wg.Wait()
	close(hits)

	seen := make(map[string]struct{})
	var evidence []types.Evidence
	for h := range hits {
		for _, r := range h.results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}

			evidence = append(evidence, types.Evidence{
				Title:    a.sanitizer.Sanitize(r.Title),
				URL:      r.URL,
				Snippet:  a.sanitizer.Sanitize(r.Snippet),
				Tier:     TierForURL(r.URL),
				Provider: h.backend,
				Score:    r.Score,
			})
		}
	}

	sort.SliceStable(evidence, func(i, j int) bool {
		if evidence[i].Tier != evidence[j].Tier {
			return evidence[i].Tier < evidence[j].Tier
		}
		return evidence[i].Score > evidence[j].Score
	})

	if maxResults > 0 && len(evidence) > maxResults {
		evidence = evidence[:maxResults]
	}
	return evidence
}

// Backends reports the enabled backend names for the ops surface.
func (a *Aggregator) Backends() []string {
	names := make([]string, 0, len(a.backends))
	for _, b := range a.backends {
		names = append(names, b.Name())
	}
	return names
}
