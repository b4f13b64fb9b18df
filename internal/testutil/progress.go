package testutil

import "dropmirror/internal/mirror"

// ProgressRun is one Start..Finish cycle seen by RecordingProgress.
type ProgressRun struct {
	Label      string
	Total      int
	Increments int
	Finished   bool
}

// RecordingProgress records every progress call for assertions.
type RecordingProgress struct {
	Runs []*ProgressRun
}

func NewRecordingProgress() *RecordingProgress {
	return &RecordingProgress{}
}

func (p *RecordingProgress) Start(label string, total int) {
	p.Runs = append(p.Runs, &ProgressRun{Label: label, Total: total})
}

func (p *RecordingProgress) Increment() {
	if len(p.Runs) == 0 {
		return
	}
	p.Runs[len(p.Runs)-1].Increments++
}

func (p *RecordingProgress) Finish() {
	if len(p.Runs) == 0 {
		return
	}
	p.Runs[len(p.Runs)-1].Finished = true
}

var _ mirror.Progress = (*RecordingProgress)(nil)
