package domain

import "time"

type RunMode string

func (m RunMode) String() string {
	return string(m)
}

const (
	RunModeBatch    RunMode = "batch"     // Full sweep written to durable storage
	RunModeOnDemand RunMode = "on-demand" // One logical shard per request
	RunModeSample   RunMode = "sample"    // First N items only, best effort
)

// RunReport describes one orchestrator run. Batch runs persist it after every
// phase change so progress can be inspected while the run is going.
type RunReport struct {
	ID          string    `json:"id"`
	Mode        RunMode   `json:"mode"`
	Phase       string    `json:"phase"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	RowsVisited int       `json:"rows_visited"`
	Entries     int       `json:"entries"`
	Collisions  int       `json:"collisions"`
	Shards      []string  `json:"shards"`
	IndexURL    string    `json:"index_url,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func (r *RunReport) Finished() bool {
	return !r.FinishedAt.IsZero()
}

func (r *RunReport) Failed() bool {
	return r.Error != ""
}
