package models

import (
	"time"
)

// WorkItem represents a single sensor file loading task
type WorkItem struct {
	ID        int
	TrialID   string
	Path      string
	StartTime time.Time
}

// WorkResult contains the outcome of a loading task
type WorkResult struct {
	ID             int
	TrialID        string
	Path           string
	Value          interface{}
	Err            error
	ProcessingTime time.Duration
	Success        bool
}

// Stats mirrors gosensorcore.Summary with JSON tags. NaN fields are encoded as null.
type Stats struct {
	Count int      `json:"count"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Q25   *float64 `json:"25%"`
	Q50   *float64 `json:"50%"`
	Q75   *float64 `json:"75%"`
	Max   *float64 `json:"max"`
}

// StreamReport describes one loaded sensor stream
type StreamReport struct {
	Sensor       string   `json:"sensor"`
	Path         string   `json:"path"`
	Key          string   `json:"key"`
	Encoding     string   `json:"encoding"`
	Samples      int      `json:"samples"`
	Columns      []string `json:"columns"`
	TimeRange    Stats    `json:"time_range"`
	Intervals    Stats    `json:"intervals"`
	Warning      string   `json:"warning,omitempty"`
	Interpolated bool     `json:"interpolated"`
}

// ColumnSpectrum holds the dominant non-DC peak of one column's spectrum
type ColumnSpectrum struct {
	Column    string  `json:"column"`
	Bins      int     `json:"bins"`
	PeakHz    float64 `json:"peak_hz"`
	PeakPower float64 `json:"peak_power"`
}

// ColumnFilter summarises a filtered or integrated column on the grid
type ColumnFilter struct {
	Sensor string   `json:"sensor"`
	Column string   `json:"column"`
	Stage  string   `json:"stage"`
	Output Stats    `json:"output"`
	Final  *float64 `json:"final"`
}

// StageTiming tracks how long a pipeline stage took
type StageTiming struct {
	Stage          string        `json:"stage"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	MemoryDelta    int64         `json:"memory_delta_bytes"`
}

// TrialReport is the JSON document printed by the CLI
type TrialReport struct {
	ID         string                      `json:"id"`
	Dir        string                      `json:"dir"`
	Time       string                      `json:"time"`
	GridStepNs int64                       `json:"grid_step_ns"`
	GridStart  int64                       `json:"grid_start_ns"`
	GridPoints int                         `json:"grid_points"`
	Streams    []StreamReport              `json:"streams"`
	Spectra    map[string][]ColumnSpectrum `json:"spectra,omitempty"`
	Filters    []ColumnFilter              `json:"filters,omitempty"`
	Warnings   []string                    `json:"warnings,omitempty"`
	Timings    []StageTiming               `json:"timings,omitempty"`
}
