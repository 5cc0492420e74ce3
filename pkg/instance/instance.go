// Package instance identifies this process replica for lease ownership and
// run attribution.
package instance

import "os"

const defaultID = "worker-0"

// GetID returns THREADLINE_WORKER_ID, or a stable default for single-replica
// and local runs.
func GetID() string {
	if id := os.Getenv("THREADLINE_WORKER_ID"); id != "" {
		return id
	}
	return defaultID
}
