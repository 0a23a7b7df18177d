package state

import (
	"encoding/json"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/jean/dbt/pkg/scheduler"
)

// State is the persisted record of one invocation, written under the logs
// directory after a run completes.
type State struct {
	sync.RWMutex `json:"-"`

	InvocationID string         `json:"invocation_id"`
	RunID        string         `json:"run_id"`
	RunStartedAt time.Time      `json:"run_started_at"`
	Metadata     Metadata       `json:"metadata"`
	Results      []*ModelResult `json:"results"`
	Version      string         `json:"version"`
}

type Metadata struct {
	Version string `json:"version"`
	OS      string `json:"os"`
}

type ModelResult struct {
	Name            string `json:"name"`
	Schema          string `json:"schema"`
	Materialization string `json:"materialization"`
	Status          string `json:"status"`
	DurationMs      int64  `json:"duration_ms"`
	Error           string `json:"error,omitempty"`
}

func NewState(invocationID, runID, appVersion string, startedAt time.Time) *State {
	return &State{
		InvocationID: invocationID,
		RunID:        runID,
		RunStartedAt: startedAt,
		Metadata: Metadata{
			Version: appVersion,
			OS:      runtime.GOOS,
		},
		Results: []*ModelResult{},
		Version: "1.0.0",
	}
}

func (s *State) SetResults(results []*scheduler.ModelExecutionResult) {
	s.Lock()
	defer s.Unlock()

	s.Results = make([]*ModelResult, 0, len(results))
	for _, result := range results {
		errMessage := ""
		if result.Error != nil {
			errMessage = result.Error.Error()
		}

		s.Results = append(s.Results, &ModelResult{
			Name:            result.Instance.Model.Name,
			Schema:          result.Instance.Model.Schema,
			Materialization: string(result.Instance.Model.Materialization.Type),
			Status:          result.Instance.GetStatus().String(),
			DurationMs:      result.ExecutionTime.Milliseconds(),
			Error:           errMessage,
		})
	}
}

// Save writes the state file under the given directory, named after the run id.
func (s *State) Save(fs afero.Fs, dir string) error {
	s.RLock()
	defer s.RUnlock()

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create the state directory %s", dir)
	}

	content, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal the run state")
	}

	path := filepath.Join(dir, s.RunID+".json")
	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write the state file %s", path)
	}

	return nil
}
