package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-verify/ava/src/core/types"
)

func evidencePair() []types.Evidence {
	return []types.Evidence{
		{Title: "Reuters piece", URL: "https://www.reuters.com/a", Tier: 1},
		{Title: "Some blog", URL: "https://example.blogspot.com/b", Tier: 4},
	}
}

func TestValidateDraftAccepts(t *testing.T) {
	draft := `{"verdict": "False", "confidence": 0.85, "reasoning": "Refuted by [1] and [2].", "citations": [1, 2, 1]}`
	res, err := validateDraft(draft, "the moon is cheese", evidencePair(), "m1")
	require.NoError(t, err)

	assert.Equal(t, types.VerdictFalse, res.Verdict)
	assert.InDelta(t, 0.85, res.Confidence, 0.001)
	// Duplicate citations collapse to one source entry each.
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "Reuters", res.Sources[0].Name)
	assert.Equal(t, 1, res.Sources[0].Tier)
	assert.Equal(t, "m1", res.Model)
}

func TestValidateDraftStripsMarkdownFence(t *testing.T) {
	draft := "```json\n{\"verdict\": \"true\", \"confidence\": 0.7, \"reasoning\": \"Per [1].\", \"citations\": [1]}\n```"
	res, err := validateDraft(draft, "s", evidencePair(), "")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictTrue, res.Verdict)
}

func TestValidateDraftToleratesSurroundingProse(t *testing.T) {
	draft := `Here is my assessment: {"verdict": "mixed", "confidence": 0.6, "reasoning": "Partly supported by [1].", "citations": [1]} Hope that helps.`
	res, err := validateDraft(draft, "s", evidencePair(), "")
	require.NoError(t, err)
	assert.Equal(t, types.VerdictMixed, res.Verdict)
}

func TestValidateDraftRejectsUnknownVerdict(t *testing.T) {
	draft := `{"verdict": "probably", "confidence": 0.6, "reasoning": "eh", "citations": []}`
	_, err := validateDraft(draft, "s", evidencePair(), "")
	assert.Error(t, err)
}

func TestValidateDraftRejectsOutOfRangeCitationTag(t *testing.T) {
	draft := `{"verdict": "true", "confidence": 0.9, "reasoning": "Shown in [7].", "citations": [1]}`
	_, err := validateDraft(draft, "s", evidencePair(), "")
	assert.ErrorContains(t, err, "citation [7] out of range")
}

func TestValidateDraftRejectsOutOfRangeCitationIndex(t *testing.T) {
	draft := `{"verdict": "true", "confidence": 0.9, "reasoning": "Supported.", "citations": [3]}`
	_, err := validateDraft(draft, "s", evidencePair(), "")
	assert.Error(t, err)
}

func TestValidateDraftRejectsConfidentVerdictWithoutSources(t *testing.T) {
	draft := `{"verdict": "true", "confidence": 0.9, "reasoning": "I just know.", "citations": []}`
	_, err := validateDraft(draft, "s", nil, "")
	assert.Error(t, err)

	// Low-confidence prior-knowledge and unverifiable verdicts pass.
	draft = `{"verdict": "true", "confidence": 0.4, "reasoning": "Common knowledge.", "citations": []}`
	_, err = validateDraft(draft, "s", nil, "")
	assert.NoError(t, err)

	draft = `{"verdict": "unverifiable", "confidence": 0.9, "reasoning": "Nothing found.", "citations": []}`
	_, err = validateDraft(draft, "s", nil, "")
	assert.NoError(t, err)

	// Percent-style confidence is normalized before the gate applies:
	// 40 means 0.4, which the low-confidence allowance permits.
	draft = `{"verdict": "true", "confidence": 40, "reasoning": "Common knowledge.", "citations": []}`
	res, err := validateDraft(draft, "s", nil, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, res.Confidence, 0.001)

	draft = `{"verdict": "true", "confidence": 90, "reasoning": "I just know.", "citations": []}`
	_, err = validateDraft(draft, "s", nil, "")
	assert.Error(t, err)
}

func TestValidateDraftNormalizesPercentConfidence(t *testing.T) {
	draft := `{"verdict": "true", "confidence": 85, "reasoning": "Per [1].", "citations": [1]}`
	res, err := validateDraft(draft, "s", evidencePair(), "")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, res.Confidence, 0.001)
}

func TestValidateDraftClampsConfidence(t *testing.T) {
	draft := `{"verdict": "true", "confidence": -2, "reasoning": "Per [1].", "citations": [1]}`
	res, err := validateDraft(draft, "s", evidencePair(), "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestValidateDraftRejectsEmptyReasoning(t *testing.T) {
	draft := `{"verdict": "true", "confidence": 0.9, "reasoning": "   ", "citations": [1]}`
	_, err := validateDraft(draft, "s", evidencePair(), "")
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`noise before {"a":1} and after`, `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractJSON(tc.in), "input %q", tc.in)
	}
}
