package providers

import (
	_ "github.com/ava-verify/ava/src/search/brave"
	_ "github.com/ava-verify/ava/src/search/tavily"
)
