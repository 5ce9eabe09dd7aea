package domain

import "time"

// Report is a printable summary of a rule ingestion or aggregation run.
type Report struct {
	Title    string
	Period   TimePeriod
	Sections []ReportSection
}

// TimePeriod is the wall-clock span of the run.
type TimePeriod struct {
	Start time.Time
	End   time.Time
}

type ReportSection struct {
	Title   string
	Summary map[string]interface{}
	Details []ReportDetail
}

type ReportDetail struct {
	Name        string
	Value       interface{}
	Unit        string
	Description string
}
