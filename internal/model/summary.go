package model

import "time"

// LoadSummary captures metrics from a single extract load run.
type LoadSummary struct {
	FilePath         string
	FileSHA256       string
	LoadID           string
	RowsRead         int64
	RowsLoaded       int64
	RowsRejected     int64
	RowsReplaced     int64
	Skipped          bool
	DurationStage    time.Duration
	DurationFinalize time.Duration
	DurationTotal    time.Duration
}
