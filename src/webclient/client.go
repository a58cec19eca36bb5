package webclient

import (
	"net/http"
	"time"
)

// NewDefault returns an HTTP client with sane timeouts. Per-call limits
// come from request contexts; this is the outer safety net.
func NewDefault(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
