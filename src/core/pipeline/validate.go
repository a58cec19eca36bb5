package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ava-verify/ava/src/core/types"
	"github.com/ava-verify/ava/src/search/core"
)

var citationTag = regexp.MustCompile(`\[(\d+)\]`)

// draftVerdict is the raw synthesis output before schema validation.
type draftVerdict struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Citations  []int   `json:"citations"`
}

// validateDraft parses a synthesis draft against the verdict schema and
// the source-locked rules: citation indices must reference provided
// sources, and with zero sources the verdict may not claim certainty.
// Any violation is returned as an error so the synthesis stage can
// retry with an amended instruction.
func validateDraft(draft, statement string, evidence []types.Evidence, model string) (*types.VerificationResult, error) {
	var d draftVerdict
	if err := json.Unmarshal([]byte(extractJSON(draft)), &d); err != nil {
		return nil, fmt.Errorf("verdict draft is not valid JSON: %w", err)
	}

	verdict := types.Verdict(strings.ToLower(strings.TrimSpace(d.Verdict)))
	switch verdict {
	case types.VerdictTrue, types.VerdictFalse, types.VerdictMixed, types.VerdictUnverifiable:
	default:
		return nil, fmt.Errorf("unknown verdict %q", d.Verdict)
	}

	confidence := d.Confidence
	if confidence > 1 {
		// Models occasionally report percentages.
		confidence = confidence / 100
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	if len(evidence) == 0 && verdict != types.VerdictUnverifiable && verdict != types.VerdictMixed {
		// Prior-knowledge verdicts without sources are allowed only at
		// low confidence.
		if confidence > 0.5 {
			return nil, fmt.Errorf("no sources provided but verdict %q claims confidence %.2f", verdict, confidence)
		}
	}

	if strings.TrimSpace(d.Reasoning) == "" {
		return nil, fmt.Errorf("verdict draft has empty reasoning")
	}

	for _, m := range citationTag.FindAllStringSubmatch(d.Reasoning, -1) {
		idx, _ := strconv.Atoi(m[1])
		if idx < 1 || idx > len(evidence) {
			return nil, fmt.Errorf("citation [%d] out of range (have %d sources)", idx, len(evidence))
		}
	}

	var sources []types.Source
	seen := make(map[int]struct{})
	for _, idx := range d.Citations {
		if idx < 1 || idx > len(evidence) {
			return nil, fmt.Errorf("cited source %d out of range (have %d sources)", idx, len(evidence))
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		ev := evidence[idx-1]
		sources = append(sources, types.Source{
			Name: core.SourceNameForURL(ev.URL, ev.Title),
			URL:  ev.URL,
			Tier: ev.Tier,
		})
	}

	return &types.VerificationResult{
		Statement:  statement,
		Verdict:    verdict,
		Confidence: confidence,
		Reasoning:  d.Reasoning,
		Sources:    sources,
		Model:      model,
	}, nil
}

// extractJSON strips markdown fences and trims to the outermost JSON
// object, tolerating prose around the model's output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = s[7:]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
