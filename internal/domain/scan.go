package domain

// RunStats summarizes one pipeline iteration. Counts only, no per-token data.
// Corresponds to the scan_runs table in ClickHouse.
type RunStats struct {
	RunID       string `json:"run_id"`
	StartedAt   int64  `json:"started_at"` // ms
	DurationMs  int64  `json:"duration_ms"`
	Fetched     int    `json:"fetched"`     // candidates produced by the source
	Passed      int    `json:"passed"`      // candidates that passed the filter
	Scam        int    `json:"scam"`        // verdicts with Scam=true
	Safe        int    `json:"safe"`        // verdicts with Scam=false
	Executions  int    `json:"executions"`  // trade intents handed to the guard
	SourceError string `json:"source_error,omitempty"`
}
