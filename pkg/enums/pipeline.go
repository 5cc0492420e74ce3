package enums

import "fmt"

// PipelineRunStatus maps to the pipeline_run_status enum in Postgres.
type PipelineRunStatus string

const (
	PipelineRunPending   PipelineRunStatus = "pending"
	PipelineRunRunning   PipelineRunStatus = "running"
	PipelineRunSucceeded PipelineRunStatus = "succeeded"
	PipelineRunFailed    PipelineRunStatus = "failed"
)

var validPipelineRunStatuses = []PipelineRunStatus{
	PipelineRunPending,
	PipelineRunRunning,
	PipelineRunSucceeded,
	PipelineRunFailed,
}

// String implements fmt.Stringer.
func (s PipelineRunStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PipelineRunStatus.
func (s PipelineRunStatus) IsValid() bool {
	for _, candidate := range validPipelineRunStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the run can no longer change state.
func (s PipelineRunStatus) IsTerminal() bool {
	return s == PipelineRunSucceeded || s == PipelineRunFailed
}

// ParsePipelineRunStatus converts raw input into a PipelineRunStatus.
func ParsePipelineRunStatus(value string) (PipelineRunStatus, error) {
	for _, candidate := range validPipelineRunStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pipeline run status %q", value)
}

// PipelineStage names the three units of work a run moves through.
type PipelineStage string

const (
	StageBOMGeneration     PipelineStage = "bom_generation"
	StageMarketForecast    PipelineStage = "market_forecast"
	StageSupplierDiscovery PipelineStage = "supplier_discovery"
)

// String implements fmt.Stringer.
func (s PipelineStage) String() string {
	return string(s)
}
