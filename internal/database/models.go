package database

import "time"

// Status is the lifecycle state of a fetch record.
type Status string

const (
	// StatusPending marks a fetch whose pipeline is still running.
	StatusPending Status = "pending"
	// StatusCompleted marks a fetch whose file is stored and servable.
	StatusCompleted Status = "completed"
	// StatusFailed marks a fetch that ended with an error.
	StatusFailed Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// FetchRecord is one row of the fetch history.
type FetchRecord struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Title           string     `json:"title,omitempty"`
	Status          Status     `json:"status"`
	Error           string     `json:"error,omitempty"`
	OriginalBytes   int64      `json:"originalBytes,omitempty"`
	FinalBytes      int64      `json:"finalBytes,omitempty"`
	DurationSeconds float64    `json:"durationSeconds,omitempty"`
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	Codec           string     `json:"codec,omitempty"`
	Container       string     `json:"container,omitempty"`
	Compressed      bool       `json:"compressed"`
	FilePath        string     `json:"-"`
	ThumbPath       string     `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Stats summarizes the fetch history for health and stats endpoints.
type Stats struct {
	TotalFetches int   `json:"totalFetches"`
	Completed    int   `json:"completed"`
	Failed       int   `json:"failed"`
	Pending      int   `json:"pending"`
	StoredBytes  int64 `json:"storedBytes"`
}
