package journal

import (
	"time"

	"github.com/joseph-ayodele/wirecert-sync/constants"
)

// Run is one recorded sync pass.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Status         constants.RunStatus
	RowsSeen       int
	RowsChanged    int
	BeforeHash     string
	AfterHash      string
	Uploaded       bool
	UploadAttempts int
	Error          string
}

// RowOutcome is what happened to a single spreadsheet row during a pass.
type RowOutcome struct {
	RowIndex int
	AssetID  *int64
	AssetTag string
	Status   constants.RowStatus
	WireRoll string
	Message  string
}

// Summary carries the counters written when a run finishes.
type Summary struct {
	Status         constants.RunStatus
	RowsSeen       int
	RowsChanged    int
	BeforeHash     string
	AfterHash      string
	Uploaded       bool
	UploadAttempts int
	Error          string
}
