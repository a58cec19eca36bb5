package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, Fatal, ClassifyStatus(http.StatusUnauthorized))
	assert.Equal(t, Fatal, ClassifyStatus(http.StatusForbidden))
	assert.Equal(t, Fatal, ClassifyStatus(http.StatusNotFound))

	assert.Equal(t, Transient, ClassifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, Transient, ClassifyStatus(http.StatusInternalServerError))
	assert.Equal(t, Transient, ClassifyStatus(http.StatusBadGateway))
	assert.Equal(t, Transient, ClassifyStatus(http.StatusServiceUnavailable))
}

func TestIsFatal(t *testing.T) {
	fatal := StatusError("openai", 401, []byte("invalid key"))
	assert.True(t, IsFatal(fatal))
	assert.True(t, IsFatal(fmt.Errorf("stage classify: %w", fatal)))

	assert.False(t, IsFatal(StatusError("openai", 500, []byte("oops"))))
	assert.False(t, IsFatal(TransportError("openai", errors.New("connection reset"))))
	assert.False(t, IsFatal(errors.New("plain error")))
	assert.False(t, IsFatal(nil))
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	body := make([]byte, 1000)
	for i := range body {
		body[i] = 'x'
	}
	err := StatusError("openai", 500, body)
	assert.LessOrEqual(t, len(err.Message), 300)
	assert.Contains(t, err.Error(), "API error 500")
}

func TestClientRegistry(t *testing.T) {
	stub := &stubClient{}
	RegisterProvider("teststub", func(cfg FactoryConfig) (Client, error) {
		return stub, nil
	}, "testalias")

	c, err := NewClient(FactoryConfig{Provider: "TestStub"})
	require.NoError(t, err)
	assert.Same(t, stub, c)

	c, err = NewClient(FactoryConfig{Provider: "testalias"})
	require.NoError(t, err)
	assert.Same(t, stub, c)

	_, err = NewClient(FactoryConfig{Provider: "nosuch"})
	assert.Error(t, err)
}

type stubClient struct{}

func (s *stubClient) Name() string { return "stub" }
func (s *stubClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	return &Completion{Text: "{}"}, nil
}
