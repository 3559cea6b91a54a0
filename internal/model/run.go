package model

import "time"

// RunStatus is the lifecycle state of a crawl run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats counts what happened during a crawl. Skips, drops, and
// coercions are all visible here so an incomplete run is never silent.
type RunStats struct {
	PagesTotal       int `json:"pages_total"`
	PagesFetched     int `json:"pages_fetched"`
	PagesSkipped     int `json:"pages_skipped"`
	RecordsKept      int `json:"records_kept"`
	RecordsDropped   int `json:"records_dropped"`
	FieldsCoerced    int `json:"fields_coerced"`
	CaptchaRefreshes int `json:"captcha_refreshes"`
}

// Run is one crawl run as recorded in the run-history store.
type Run struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	Stats      RunStats  `json:"stats"`
	ReportPath string    `json:"report_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}
