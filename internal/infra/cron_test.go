package infra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCronLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewCronLogger(zap.New(core))

	l.Info("schedule", "entry", 1)
	l.Error(errors.New("boom"), "job failed", "entry", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "schedule", entries[0].Message)
	assert.Equal(t, "job failed", entries[1].Message)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	c := NewScheduler(zap.NewNop())
	_, err := c.AddFunc("every tuesday-ish", func() {})
	assert.Error(t, err)

	_, err = c.AddFunc("@every 6h", func() {})
	assert.NoError(t, err)
}
