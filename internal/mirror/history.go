package mirror

import "dropmirror/internal/model"

// History persists an audit trail of runs. It is write-mostly: nothing in the
// pipeline reads it back to decide what to download.
type History interface {
	CreateRun(run *model.Run) error
	RecordCollection(rc *model.RunCollection) error
	FinishRun(run *model.Run) error
	ListRuns(limit int) ([]*model.Run, error)
	ListRunCollections(runID string) ([]*model.RunCollection, error)
	Close() error
}

// NopHistory discards everything. Used when history is disabled.
type NopHistory struct{}

func (NopHistory) CreateRun(*model.Run) error                                { return nil }
func (NopHistory) RecordCollection(*model.RunCollection) error               { return nil }
func (NopHistory) FinishRun(*model.Run) error                                { return nil }
func (NopHistory) ListRuns(int) ([]*model.Run, error)                        { return nil, nil }
func (NopHistory) ListRunCollections(string) ([]*model.RunCollection, error) { return nil, nil }
func (NopHistory) Close() error                                              { return nil }

// RunCollectionFromReport converts a collection report into its history record.
func RunCollectionFromReport(runID string, position int, r *CollectionReport) *model.RunCollection {
	rc := &model.RunCollection{
		RunID:        runID,
		Position:     position,
		CollectionID: r.Collection.ID,
		Name:         r.Collection.Name,
		Dir:          r.Dir,
		Status:       r.Status.String(),
		Items:        make([]model.RunItem, 0, len(r.Items)),
	}
	if r.Err != nil {
		rc.Error = r.Err.Error()
	}
	for _, it := range r.Items {
		ri := model.RunItem{
			ItemID:  it.ItemID,
			Type:    it.Type,
			Outcome: it.Outcome.String(),
			Path:    it.Path,
			Bytes:   it.Bytes,
		}
		switch {
		case it.Err != nil:
			ri.Error = it.Err.Error()
		case it.Reason != "":
			ri.Error = it.Reason
		}
		rc.Items = append(rc.Items, ri)
	}
	return rc
}
