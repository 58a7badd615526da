package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvString(t *testing.T) {
	t.Run("returns value when set", func(t *testing.T) {
		t.Setenv("TEST_STRING", "custom")
		assert.Equal(t, "custom", GetEnvString("TEST_STRING", "default"))
	})

	t.Run("returns default when unset", func(t *testing.T) {
		assert.Equal(t, "default", GetEnvString("TEST_STRING_UNSET", "default"))
	})

	t.Run("returns default when empty", func(t *testing.T) {
		t.Setenv("TEST_STRING", "")
		assert.Equal(t, "default", GetEnvString("TEST_STRING", "default"))
	})
}

func TestGetEnvInt(t *testing.T) {
	t.Run("returns parsed value", func(t *testing.T) {
		t.Setenv("TEST_INT", "42")
		assert.Equal(t, 42, GetEnvInt("TEST_INT", 7))
	})

	t.Run("returns default when unset", func(t *testing.T) {
		assert.Equal(t, 7, GetEnvInt("TEST_INT_UNSET", 7))
	})

	t.Run("returns default on parse error", func(t *testing.T) {
		t.Setenv("TEST_INT", "not-a-number")
		assert.Equal(t, 7, GetEnvInt("TEST_INT", 7))
	})

	t.Run("parses negative values", func(t *testing.T) {
		t.Setenv("TEST_INT", "-3")
		assert.Equal(t, -3, GetEnvInt("TEST_INT", 7))
	})
}

func TestGetEnvFloat(t *testing.T) {
	t.Run("returns parsed value", func(t *testing.T) {
		t.Setenv("TEST_FLOAT", "2.5")
		assert.Equal(t, 2.5, GetEnvFloat("TEST_FLOAT", 1.0))
	})

	t.Run("returns default on parse error", func(t *testing.T) {
		t.Setenv("TEST_FLOAT", "two point five")
		assert.Equal(t, 1.0, GetEnvFloat("TEST_FLOAT", 1.0))
	})
}

func TestGetEnvDuration(t *testing.T) {
	t.Run("returns parsed value", func(t *testing.T) {
		t.Setenv("TEST_DURATION", "1m30s")
		assert.Equal(t, 90*time.Second, GetEnvDuration("TEST_DURATION", time.Second))
	})

	t.Run("returns default when unset", func(t *testing.T) {
		assert.Equal(t, time.Second, GetEnvDuration("TEST_DURATION_UNSET", time.Second))
	})

	t.Run("returns default on parse error", func(t *testing.T) {
		t.Setenv("TEST_DURATION", "90")
		assert.Equal(t, time.Second, GetEnvDuration("TEST_DURATION", time.Second))
	})
}

func TestGetEnvStringList(t *testing.T) {
	defaults := []string{"ECONNRESET"}

	t.Run("splits and trims", func(t *testing.T) {
		t.Setenv("TEST_LIST", "ECONNRESET, ETIMEDOUT ,ENOTFOUND")
		assert.Equal(t, []string{"ECONNRESET", "ETIMEDOUT", "ENOTFOUND"}, GetEnvStringList("TEST_LIST", defaults))
	})

	t.Run("filters empty entries", func(t *testing.T) {
		t.Setenv("TEST_LIST", "a,,b,")
		assert.Equal(t, []string{"a", "b"}, GetEnvStringList("TEST_LIST", defaults))
	})

	t.Run("returns default when unset", func(t *testing.T) {
		assert.Equal(t, defaults, GetEnvStringList("TEST_LIST_UNSET", defaults))
	})

	t.Run("returns default when only separators", func(t *testing.T) {
		t.Setenv("TEST_LIST", ", ,")
		assert.Equal(t, defaults, GetEnvStringList("TEST_LIST", defaults))
	})
}

func TestGetEnvIntList(t *testing.T) {
	defaults := []int{502, 503}

	t.Run("splits and parses", func(t *testing.T) {
		t.Setenv("TEST_INT_LIST", "500, 502,504")
		assert.Equal(t, []int{500, 502, 504}, GetEnvIntList("TEST_INT_LIST", defaults))
	})

	t.Run("bad entry invalidates the whole list", func(t *testing.T) {
		t.Setenv("TEST_INT_LIST", "500,abc,504")
		assert.Equal(t, defaults, GetEnvIntList("TEST_INT_LIST", defaults))
	})

	t.Run("returns default when unset", func(t *testing.T) {
		assert.Equal(t, defaults, GetEnvIntList("TEST_INT_LIST_UNSET", defaults))
	})
}

func TestDurationValidators(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Second))
	assert.Error(t, ValidatePositiveDuration(0))
	assert.Error(t, ValidatePositiveDuration(-time.Second))

	assert.NoError(t, ValidateNonNegativeDuration(0))
	assert.NoError(t, ValidateNonNegativeDuration(time.Second))
	assert.Error(t, ValidateNonNegativeDuration(-time.Nanosecond))

	assert.NoError(t, ValidateDurationRange(time.Second, time.Millisecond, time.Minute))
	assert.Error(t, ValidateDurationRange(time.Hour, time.Millisecond, time.Minute))
	assert.Error(t, ValidateDurationRange(0, time.Millisecond, time.Minute))
}
