package domain

import "time"

// RunState enumerates pipeline milestones.
type RunState string

const (
	StateCollecting      RunState = "COLLECTING"
	StateBuildingContext RunState = "BUILDING_CONTEXT"
	StateSynthesizing    RunState = "SYNTHESIZING"
	StateAssembling      RunState = "ASSEMBLING"
	StateDone            RunState = "DONE"
	StateFailed          RunState = "FAILED"
)

// Run identifies one pipeline execution.
type Run struct {
	ID        string
	Window    RunWindow
	State     RunState
	StartedAt time.Time
}

// AdapterReport records what one adapter contributed to a run.
type AdapterReport struct {
	Adapter string
	Items   int
	Err     error
}

// Failed reports whether the adapter hit at least one upstream failure.
func (r AdapterReport) Failed() bool {
	return r.Err != nil
}

// RunSummary is reported at the end of every run, successful or not.
type RunSummary struct {
	Run         Run
	Transitions []RunState
	Adapters    []AdapterReport
	TotalItems  int
	CorpusPath  string
	Artifacts   *ReportArtifacts
	Model       string
	FinishedAt  time.Time
	Err         error
}

// Duration is the wall time between run start and finish.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.Run.StartedAt)
}
