package app

import (
	"time"

	"dropmirror/internal/mirror"
	"dropmirror/internal/model"
)

// Run modes recorded in history.
const (
	ModeAll      = "all"
	ModeSelected = "selected"
	ModeManual   = "manual"
)

// RunOperation tracks one download run while it is in progress. Collections
// are recorded in processing order and tallied into the run's counters.
type RunOperation struct {
	Run      *model.Run
	position int
}

// NewRunOperation creates an in-memory run in the running state.
func NewRunOperation(id, mode, rootDir string, started time.Time) *RunOperation {
	return &RunOperation{
		Run: &model.Run{
			ID:        id,
			Mode:      mode,
			RootDir:   rootDir,
			StartedAt: started,
			Status:    model.RunRunning,
		},
	}
}

// Record tallies a finished collection and returns its history record.
func (op *RunOperation) Record(r *mirror.CollectionReport) *model.RunCollection {
	run := op.Run
	run.Collections++
	if r.Status == mirror.StatusAborted {
		run.Aborted++
	}
	run.Written += r.Count(mirror.OutcomeWritten)
	run.Skipped += r.Count(mirror.OutcomeSkipped)
	run.Failed += r.Count(mirror.OutcomeFailed)

	rc := mirror.RunCollectionFromReport(run.ID, op.position, r)
	op.position++
	return rc
}

// Finish marks the run complete. A run is an error only when err is set;
// aborted collections and failed items are counted, not escalated.
func (op *RunOperation) Finish(at time.Time, err error) {
	op.Run.FinishedAt = &at
	op.Run.Status = model.RunSuccess
	if err != nil {
		op.Run.Status = model.RunError
	}
}

// Duration is the wall time of a finished run.
func (op *RunOperation) Duration() time.Duration {
	if op.Run.FinishedAt == nil {
		return 0
	}
	return op.Run.FinishedAt.Sub(op.Run.StartedAt)
}
