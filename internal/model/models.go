package model

import "time"

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// Run records one download invocation.
type Run struct {
	ID          string // UUID
	Mode        string // "all", "selected", or "manual"
	RootDir     string // timestamped directory every collection was written under
	StartedAt   time.Time
	FinishedAt  *time.Time // nil while running or if the process died
	Status      string
	Collections int // collections processed, including aborted ones
	Aborted     int
	Written     int
	Skipped     int
	Failed      int
}

// RunCollection records the terminal state of one collection within a run.
// Position is the collection's processing order, starting at 0.
type RunCollection struct {
	RunID        string
	Position     int
	CollectionID string
	Name         string
	Dir          string
	Status       string // "done" or "aborted"
	Error        string
	Items        []RunItem
}

// RunItem records what happened to one manifest item.
type RunItem struct {
	ItemID  string
	Type    string
	Outcome string // "written", "skipped", or "failed"
	Path    string
	Bytes   int64
	Error   string
}
