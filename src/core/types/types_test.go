package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobCancelFlag(t *testing.T) {
	j := &Job{ID: "x"}
	assert.False(t, j.Canceled())
	j.Cancel()
	assert.True(t, j.Canceled())
	j.Cancel() // idempotent
	assert.True(t, j.Canceled())
}
