// Package tracking sends anonymous usage events for each invocation, mirroring
// what the hosted collector expects. Opt out with TELEMETRY_OPTOUT.
package tracking

import (
	"runtime"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/rudderlabs/analytics-go/v4"

	"github.com/jean/dbt/pkg/model"
	"github.com/jean/dbt/pkg/scheduler"
)

const url = "https://getdbtgo.dataplane.rudderstack.com"

var (
	TelemetryKey = ""
	OptOut       = false
	AppVersion   = ""
)

func SendEvent(event string, properties analytics.Properties) {
	if OptOut || TelemetryKey == "" {
		return
	}
	id, _ := machineid.ID()

	client := analytics.New(TelemetryKey, url)
	_ = client.Enqueue(analytics.Track{
		AnonymousId:       id,
		Event:             event,
		OriginalTimestamp: time.Now().In(time.UTC),
		Context: &analytics.Context{
			App: analytics.AppInfo{
				Name:    "dbt CLI",
				Version: AppVersion,
			},
			OS: analytics.OSInfo{
				Name: runtime.GOOS + " " + runtime.GOARCH,
			},
		},
		Properties: properties,
	})
}

// SendModelRun reports the outcome of a single model within a run, including
// models that were skipped or never ran because an upstream model failed.
func SendModelRun(invocationID string, result *scheduler.ModelExecutionResult) {
	SendEvent("model_run", analytics.Properties{
		"invocation_id":         invocationID,
		"run_status":            result.Instance.GetStatus().String(),
		"execution_time_ms":     result.ExecutionTime.Milliseconds(),
		"model_materialization": string(result.Instance.Model.Materialization.Type),
	})
}

// SendRunSummary reports aggregate counts once a run finishes.
func SendRunSummary(invocationID string, results []*scheduler.ModelExecutionResult, elapsed time.Duration) {
	counts := map[string]int{}
	materializations := map[model.MaterializationType]int{}
	for _, result := range results {
		counts[result.Instance.GetStatus().String()]++
		materializations[result.Instance.Model.Materialization.Type]++
	}

	SendEvent("run_end", analytics.Properties{
		"invocation_id": invocationID,
		"statuses":      counts,
		"tables":        materializations[model.MaterializationTypeTable],
		"views":         materializations[model.MaterializationTypeView],
		"duration_ms":   elapsed.Milliseconds(),
	})
}
