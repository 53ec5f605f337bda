package pipeline

import (
	"encoding/json"

	"ward/internal/store"
)

// Summary captures the outcome of one pipeline run. It is persisted as the
// run record's JSON payload and returned to the caller.
type Summary struct {
	RunID            string     `json:"run_id"`
	Kind             store.Kind `json:"kind"`
	Attempted        int        `json:"attempted"`
	Created          int        `json:"created"`
	AlreadyPublished int        `json:"already_published"`
	Failed           int        `json:"failed"`
	Skipped          int        `json:"skipped"`
	Dropped          int        `json:"dropped"`
	Partial          bool       `json:"partial"`
	Reason           string     `json:"reason,omitempty"`
	ElapsedSeconds   float64    `json:"elapsed_seconds"`
	Errors           []string   `json:"errors,omitempty"`
}

// JSON renders the summary for storage. Marshalling a summary cannot fail;
// a defensive fallback keeps the run record usable regardless.
func (s *Summary) JSON() string {
	data, err := json.Marshal(s)
	if err != nil {
		return `{"error":"summary marshal failed"}`
	}
	return string(data)
}

// outcome is the per-neighborhood result reported back to the batch loop.
// Period-anchored kinds produce at most one artifact per neighborhood;
// item-anchored kinds report counts.
type outcome struct {
	neighborhoodID string
	created        int
	alreadyExists  int
	skipped        bool
	dropped        int
	err            error
}
