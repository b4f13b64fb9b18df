package mirror

// Progress receives one Start, one Increment per processed item, and one Finish
// for every collection that gets past manifest retrieval.
type Progress interface {
	Start(label string, total int)
	Increment()
	Finish()
}

// NopProgress ignores all progress updates.
type NopProgress struct{}

func (NopProgress) Start(string, int) {}
func (NopProgress) Increment()        {}
func (NopProgress) Finish()           {}
