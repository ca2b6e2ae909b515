// Package events defines the payloads published after report runs.
package events

import "time"

// EventTypeReportGenerated identifies ReportGenerated messages in the event_type header.
const EventTypeReportGenerated = "report.generated"

// ReportGenerated is emitted once a report table has been finalized and exported.
type ReportGenerated struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	GeneratedAt time.Time `json:"generated_at"`
	Persons     int       `json:"persons"`
	Rows        int       `json:"rows"`
	Absent      int       `json:"absent"`
	Skipped     int       `json:"skipped"`
	Artifacts   []string  `json:"artifacts,omitempty"`
}
