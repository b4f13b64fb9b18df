package app

import (
	"errors"
	"testing"
	"time"

	"dropmirror/internal/mirror"
	"dropmirror/internal/model"
)

func TestNewRunOperation(t *testing.T) {
	started := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	op := NewRunOperation("run-1", ModeAll, "/out/root", started)

	if op.Run.ID != "run-1" || op.Run.Mode != ModeAll || op.Run.RootDir != "/out/root" {
		t.Errorf("Run = %+v", op.Run)
	}
	if op.Run.Status != model.RunRunning {
		t.Errorf("Status = %q, want %q", op.Run.Status, model.RunRunning)
	}
	if op.Run.FinishedAt != nil {
		t.Error("FinishedAt set on a new run")
	}
	if op.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", op.Duration())
	}
}

func TestRunOperation_Record(t *testing.T) {
	op := NewRunOperation("run-1", ModeSelected, "/out/root", time.Now())

	done := &mirror.CollectionReport{
		Collection: mirror.Collection{ID: "10", Name: "Trip"},
		Status:     mirror.StatusDone,
		Items: []mirror.ItemResult{
			{ItemID: "1", Outcome: mirror.OutcomeWritten},
			{ItemID: "2", Outcome: mirror.OutcomeWritten},
			{ItemID: "3", Outcome: mirror.OutcomeSkipped},
			{ItemID: "4", Outcome: mirror.OutcomeFailed},
		},
	}
	aborted := &mirror.CollectionReport{
		Collection: mirror.Collection{ID: "20", Name: "Gone"},
		Status:     mirror.StatusAborted,
		Err:        errors.New("manifest unavailable"),
	}

	first := op.Record(done)
	second := op.Record(aborted)

	if first.Position != 0 || second.Position != 1 {
		t.Errorf("positions = %d, %d, want 0, 1", first.Position, second.Position)
	}
	if first.RunID != "run-1" || second.RunID != "run-1" {
		t.Errorf("records not tagged with run id")
	}

	want := model.Run{Collections: 2, Aborted: 1, Written: 2, Skipped: 1, Failed: 1}
	got := *op.Run
	if got.Collections != want.Collections || got.Aborted != want.Aborted ||
		got.Written != want.Written || got.Skipped != want.Skipped || got.Failed != want.Failed {
		t.Errorf("counters = %+v, want %+v", got, want)
	}
}

func TestRunOperation_Finish(t *testing.T) {
	started := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

	tests := []struct {
		name       string
		err        error
		wantStatus string
	}{
		{name: "success", err: nil, wantStatus: model.RunSuccess},
		{name: "fatal error", err: errors.New("creating output directory"), wantStatus: model.RunError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewRunOperation("run-1", ModeAll, "/root", started)
			op.Finish(started.Add(90*time.Second), tt.err)

			if op.Run.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", op.Run.Status, tt.wantStatus)
			}
			if op.Run.FinishedAt == nil {
				t.Fatal("FinishedAt not set")
			}
			if op.Duration() != 90*time.Second {
				t.Errorf("Duration() = %v, want 90s", op.Duration())
			}
		})
	}
}
