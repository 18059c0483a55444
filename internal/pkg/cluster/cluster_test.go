package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRunCron(t *testing.T) {
	t.Run("standalone always runs cron", func(t *testing.T) {
		t.Setenv(EnvRole, "")
		assert.True(t, ShouldRunCron())
	})

	t.Run("first worker runs cron", func(t *testing.T) {
		t.Setenv(EnvRole, "worker")
		t.Setenv(EnvWorkerID, "1")
		assert.True(t, ShouldRunCron())
	})

	t.Run("other workers skip cron", func(t *testing.T) {
		t.Setenv(EnvRole, "worker")
		t.Setenv(EnvWorkerID, "3")
		assert.False(t, ShouldRunCron())
	})
}

func TestWorkerID(t *testing.T) {
	t.Setenv(EnvWorkerID, "2")
	assert.Equal(t, 2, WorkerID())

	t.Setenv(EnvWorkerID, "zero")
	assert.Zero(t, WorkerID())

	t.Setenv(EnvWorkerID, "-1")
	assert.Zero(t, WorkerID())
}
