package constants

// RowStatus is the outcome recorded for one spreadsheet row during a pass.
type RowStatus string

// Stable values (store these exact strings in the journal).
const (
	RowStatusUnchanged  RowStatus = "UNCHANGED"    // service date matches, nothing to do
	RowStatusRefreshed  RowStatus = "REFRESHED"    // stale row refreshed, wire roll found
	RowStatusNoWireRoll RowStatus = "NO_WIRE_ROLL" // refreshed, certificate had no wire roll line
	RowStatusNoRecord   RowStatus = "NO_RECORD"    // no service record for the asset
	RowStatusNoCert     RowStatus = "NO_CERT"      // refreshed, work item or certificate missing
	RowStatusSkipped    RowStatus = "SKIPPED"      // row had no asset id
	RowStatusError      RowStatus = "ERROR"        // remote failure while processing the row
)

// RunStatus is the terminal status of a sync pass.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusUploaded RunStatus = "UPLOADED"
	RunStatusNoChange RunStatus = "NO_CHANGE"
	RunStatusFailed   RunStatus = "FAILED"
)
