package providers

import (
	_ "github.com/ava-verify/ava/src/ai/anthropic"
	_ "github.com/ava-verify/ava/src/ai/gemini"
	_ "github.com/ava-verify/ava/src/ai/openai"
)
