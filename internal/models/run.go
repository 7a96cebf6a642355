package models

import (
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// DocumentResult is the persisted outcome of one document in a batch run.
type DocumentResult struct {
	Document string `json:"document"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BatchRun represents a persisted batch run.
type BatchRun struct {
	ID            surrealmodels.RecordID `json:"id"`
	Status        string                 `json:"status"`
	Location      string                 `json:"location,omitempty"`
	Documents     []string               `json:"documents"`
	MaxConcurrent int                    `json:"max_concurrent"`
	Total         int                    `json:"total"`
	Progress      int                    `json:"progress"`
	Results       []DocumentResult       `json:"results,omitempty"`
	Error         *string                `json:"error,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
}

// RunID returns the string key of the run's record id, or "?" when the
// store handed back a non-string key.
func (r BatchRun) RunID() string {
	if s, ok := r.ID.ID.(string); ok {
		return s
	}
	return fmt.Sprintf("?%v", r.ID.ID)
}
