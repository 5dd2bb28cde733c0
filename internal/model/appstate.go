package model

import "time"

// AppState is a record of what was true about the host application during a
// launch. The current slot is rotated into the previous slot on every SDK
// start, so the next launch can inspect how the previous one ended.
type AppState struct {
	SDKVersion    string    `json:"sdk_version"`
	StartedAt     time.Time `json:"started_at"`
	DebugEnabled  bool      `json:"debug_enabled"`
	CleanShutdown bool      `json:"clean_shutdown"`
}

// AppStartType discriminates cold and warm application starts.
type AppStartType string

const (
	// AppStartTypeCold is a start from a non-running process.
	AppStartTypeCold AppStartType = "cold"
	// AppStartTypeWarm is a start of an already warmed-up process.
	AppStartTypeWarm AppStartType = "warm"
)

// AppStartMeasurement is the cached timing of how long application launch
// took, produced by the deferred platform phase.
type AppStartMeasurement struct {
	Type     AppStartType  `json:"type"`
	StartAt  time.Time     `json:"start_at"`
	EndAt    time.Time     `json:"end_at"`
	Duration time.Duration `json:"duration"`
}
