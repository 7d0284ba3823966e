// Package model holds the wire and report types shared by the pipeline,
// the HTTP API, and the review exporter.
package model

import "time"

// StandardizedRecord pairs a raw manifest value, exactly as it appeared,
// with its standardized output.
type StandardizedRecord struct {
	RawInput string `json:"raw_input"`
	Output   string `json:"output"`
}

// ColumnStats summarizes one processed manifest column.
type ColumnStats struct {
	Column    string `json:"column"`
	Rows      int    `json:"rows"`
	Nulls     int    `json:"nulls"`
	Uniques   int    `json:"uniques"`
	CacheHits int    `json:"cache_hits"`
}

// RunReport summarizes a full manifest run.
type RunReport struct {
	Source   string        `json:"source"`
	Output   string        `json:"output"`
	Rows     int           `json:"rows"`
	Columns  []ColumnStats `json:"columns"`
	Duration time.Duration `json:"duration"`
}
