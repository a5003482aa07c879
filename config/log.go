package config

// Runs is an in-memory history of past capture runs. It is not part of
// Config, and `orbitctl capture query` takes its report path as an
// argument rather than reading it from here.
type Runs struct {
	runs []*Run
}

// Run is one completed (or in-progress) capture: when it started/ended,
// where its report was saved, and whether it's still sampling.
type Run struct {
	Start      int64 // Unix time
	End        int64 // Unix time
	ReportFile string
	IsSampling bool
}

func NewRuns() *Runs {
	return &Runs{}
}

func (r *Runs) Add(run *Run) {
	r.runs = append(r.runs, run)
}

func (r *Runs) Walk(fn func(*Run) error) error {
	for _, run := range r.runs {
		if err := fn(run); err != nil {
			return err
		}
	}
	return nil
}
