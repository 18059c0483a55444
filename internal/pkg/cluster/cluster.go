package cluster

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvRole     = "GRADFLOW_CLUSTER_ROLE"
	EnvWorkerID = "GRADFLOW_CLUSTER_WORKER_ID"

	RoleWorker = "worker"
)

// IsWorker reports whether this process runs as a clustered worker instance.
func IsWorker() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(EnvRole)), RoleWorker)
}

// WorkerID returns the 1-based worker index, or 0 when unset/invalid.
func WorkerID() int {
	raw := strings.TrimSpace(os.Getenv(EnvWorkerID))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0
	}
	return v
}

// ShouldRunCron keeps cron jobs single-run across clustered workers.
func ShouldRunCron() bool {
	if IsWorker() {
		return WorkerID() == 1
	}
	return true
}

// ShouldLogBootstrap keeps startup logs from being printed once per worker.
func ShouldLogBootstrap() bool {
	return !IsWorker() || WorkerID() == 1
}
