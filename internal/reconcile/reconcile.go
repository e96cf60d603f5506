// Package reconcile decides whether a spreadsheet row is stale against the
// latest Qualer service record and refreshes it when it is.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

// Outcome classifies what Reconcile did to a row.
type Outcome int

const (
	// NoRecord: no service record exists for the asset; the row is untouched.
	NoRecord Outcome = iota
	// Unchanged: the row already reflects the latest service date.
	Unchanged
	// Refreshed: the row was stale and has been overwritten from the record.
	Refreshed
)

func (o Outcome) String() string {
	switch o {
	case NoRecord:
		return "no_record"
	case Unchanged:
		return "unchanged"
	case Refreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// Result reports the decision for one row.
type Result struct {
	Outcome     Outcome
	TagChanged  bool
	SerialDrift bool
}

// Changed reports whether the row was mutated.
func (r Result) Changed() bool { return r.Outcome == Refreshed }

// Latest returns the record with the greatest service date. Undated records
// lose to dated ones; among equal dates the earliest in list order wins.
// Returns nil for an empty slice.
func Latest(records []entity.ServiceRecord) *entity.ServiceRecord {
	var best *entity.ServiceRecord
	for i := range records {
		r := &records[i]
		if best == nil {
			best = r
			continue
		}
		if r.ServiceDate == nil {
			continue
		}
		if best.ServiceDate == nil || r.ServiceDate.After(*best.ServiceDate) {
			best = r
		}
	}
	return best
}

// Engine applies the reconciliation rules and logs per-row anomalies.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Reconcile compares row against latest and, when the row is stale, clears its
// wire roll number and overwrites the service fields. The remote value always wins.
func (e *Engine) Reconcile(row *entity.AssetRow, latest *entity.ServiceRecord) Result {
	if latest == nil {
		e.logger.Warn("no service record found", "asset_id", assetID(row), "asset_tag", row.AssetTag)
		return Result{Outcome: NoRecord}
	}
	if row.ServiceDate != nil && entity.SameDate(row.ServiceDate, latest.ServiceDate) {
		return Result{Outcome: Unchanged}
	}

	res := Result{Outcome: Refreshed}
	if row.AssetTag != "" && row.AssetTag != latest.AssetTag {
		res.TagChanged = true
		e.logger.Warn("asset tag differs from service record",
			"asset_id", assetID(row), "sheet", row.AssetTag, "remote", latest.AssetTag)
	}
	if row.SerialNumber != "" && row.SerialNumber != latest.SerialNumber {
		res.SerialDrift = true
		e.logger.Warn("serial number differs from service record",
			"asset_id", assetID(row), "sheet", row.SerialNumber, "remote", latest.SerialNumber)
	}

	row.WireRollCertNumber = nil
	row.SerialNumber = latest.SerialNumber
	row.AssetTag = latest.AssetTag
	row.CustomOrderNumber = latest.CustomOrderNumber
	row.ServiceDate = copyDate(latest.ServiceDate)
	row.NextServiceDate = copyDate(latest.NextServiceDate)
	if latest.CertificateNumber != "" {
		cert := latest.CertificateNumber
		row.CertificateNumber = &cert
	} else {
		row.CertificateNumber = nil
	}
	return res
}

func assetID(row *entity.AssetRow) any {
	if row.AssetID == nil {
		return nil
	}
	return *row.AssetID
}

func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := entity.TruncateDate(*t)
	return &d
}
