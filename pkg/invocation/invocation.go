// Package invocation carries the identity of a single run of the tool. Every
// template rendered within one process run sees the same invocation id and
// start timestamp.
package invocation

import (
	"os"
	"time"

	"github.com/google/uuid"
)

type Invocation struct {
	ID        string
	StartedAt time.Time
}

func New() *Invocation {
	return &Invocation{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// RunID returns a human-friendly identifier for artifact paths and state
// files. It can be pinned via the DBT_RUN_ID environment variable.
func (i *Invocation) RunID() string {
	if runID := os.Getenv("DBT_RUN_ID"); runID != "" {
		return runID
	}

	return i.StartedAt.Format("2006_01_02_15_04_05")
}

// StartedAtRFC3339 is the canonical string form exposed as `run_started_at`.
func (i *Invocation) StartedAtRFC3339() string {
	return i.StartedAt.Format(time.RFC3339)
}
