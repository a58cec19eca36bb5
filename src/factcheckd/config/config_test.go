package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettingEnvFallback(t *testing.T) {
	t.Setenv("TEST_FALLBACK", "from-env")
	assert.Equal(t, "from-env", setting("no_such_setting", "TEST_FALLBACK", "default"))
	assert.Equal(t, "default", setting("no_such_setting", "TEST_UNSET", "default"))
}

func TestTypedSettingParsing(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, settingInt("x", "TEST_INT", 7))
	t.Setenv("TEST_INT", "notanumber")
	assert.Equal(t, 7, settingInt("x", "TEST_INT", 7))

	t.Setenv("TEST_FLOAT", "0.25")
	assert.Equal(t, 0.25, settingFloat("x", "TEST_FLOAT", 1))

	t.Setenv("TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, settingDuration("x", "TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, settingDuration("x", "TEST_DUR_UNSET", time.Minute))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"tavily", "brave"}, splitList(" tavily , brave ,"))
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
}
