package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StdoutOnlyWhenNoFilePath(t *testing.T) {
	logger, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Infow("test message", "key", "value")
	if err := logger.Sync(); err != nil {
		t.Logf("sync returned %v (expected on some stdout targets)", err)
	}
}

func TestNew_InvalidLevelReturnsError(t *testing.T) {
	_, err := New(Config{Level: "not-a-real-level"})
	assert.Error(t, err, "expected an error for an invalid log level")
}

func TestWith_ReturnsChildLogger(t *testing.T) {
	logger, err := New(Config{Level: "info"})
	require.NoError(t, err)
	child := logger.With("request_id", "abc123")
	require.NotNil(t, child)
	child.Infow("child log line")
}

func TestNopLogger_SatisfiesInterface(t *testing.T) {
	var l Logger = NewNop()
	l.Debugf("%s", "x")
	l.Infow("msg", "k", "v")
	assert.NoError(t, l.Sync(), "expected nop Sync to never error")
}
