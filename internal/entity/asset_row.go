package entity

import (
	"strings"
	"time"
)

// AssetRow is one row of the wire-set spreadsheet.
type AssetRow struct {
	AssetID            *int64     `json:"asset_id,omitempty"`
	AssetTag           string     `json:"asset_tag"`
	SerialNumber       string     `json:"serial_number"`
	CustomOrderNumber  string     `json:"custom_order_number"`
	CertificateNumber  *string    `json:"certificate_number,omitempty"`
	ServiceDate        *time.Time `json:"service_date,omitempty"`
	NextServiceDate    *time.Time `json:"next_service_date,omitempty"`
	WireRollCertNumber *string    `json:"wire_roll_cert_number,omitempty"`
}

// Table is the ordered set of rows loaded from the spreadsheet.
// A row's index in Rows is part of its identity for change detection.
type Table struct {
	Rows []AssetRow
}

// Clone returns a deep copy so the original can be hashed after rows are mutated.
func (t *Table) Clone() *Table {
	out := &Table{Rows: make([]AssetRow, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Clone deep-copies the pointer fields of the row.
func (r AssetRow) Clone() AssetRow {
	c := r
	if r.AssetID != nil {
		v := *r.AssetID
		c.AssetID = &v
	}
	c.CertificateNumber = cloneString(r.CertificateNumber)
	c.WireRollCertNumber = cloneString(r.WireRollCertNumber)
	c.ServiceDate = cloneTime(r.ServiceDate)
	c.NextServiceDate = cloneTime(r.NextServiceDate)
	return c
}

// CompactTag returns the asset tag with every space removed, the form used
// as the certificate file name prefix.
func CompactTag(tag string) string {
	return strings.ReplaceAll(tag, " ", "")
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
