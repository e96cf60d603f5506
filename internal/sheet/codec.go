// Package sheet converts between the wire-set spreadsheet (XLSX or CSV) and entity.Table.
package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

// ContentType returns the MIME type used when uploading a file of format.
func ContentType(format string) string {
	if format == constants.CSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Decode parses data in the given format into a Table.
func Decode(data []byte, format, sheetName string) (*entity.Table, error) {
	switch format {
	case constants.XLSX:
		return decodeXLSX(data, sheetName)
	case constants.CSV:
		return decodeCSV(data)
	default:
		return nil, common.NewAppError(common.CodeDecode, fmt.Sprintf("unsupported spreadsheet format %q", format), common.ErrInvalidInput)
	}
}

// Encode serializes t in the given format with the canonical header row.
func Encode(t *entity.Table, format, sheetName string) ([]byte, error) {
	switch format {
	case constants.XLSX:
		return encodeXLSX(t, sheetName)
	case constants.CSV:
		return encodeCSV(t)
	default:
		return nil, common.NewAppError(common.CodeDecode, fmt.Sprintf("unsupported spreadsheet format %q", format), common.ErrInvalidInput)
	}
}

// Rewrite writes the rows of t back into original, the file t was decoded from.
// Only the canonical cells of the data rows change: other sheets, unknown
// columns, blank rows and formatting stay as they were. Canonical columns the
// header lacks are appended to it. With no original it falls back to Encode.
func Rewrite(original []byte, t *entity.Table, format, sheetName string) ([]byte, error) {
	if len(original) == 0 {
		return Encode(t, format, sheetName)
	}
	switch format {
	case constants.XLSX:
		return rewriteXLSX(original, t, sheetName)
	case constants.CSV:
		return rewriteCSV(original, t)
	default:
		return nil, common.NewAppError(common.CodeEncode, fmt.Sprintf("unsupported spreadsheet format %q", format), common.ErrInvalidInput)
	}
}

// extendHeader assigns a position past the end of header to every canonical
// column idx is missing and returns the names added, in canonical order.
func extendHeader(idx map[string]int, width int) []string {
	var added []string
	for _, c := range constants.Columns {
		if _, ok := idx[c]; !ok {
			idx[c] = width + len(added)
			added = append(added, c)
		}
	}
	return added
}

// dataRows returns the positions in rows (header at 0) that decode into table rows.
func dataRows(rows [][]string) []int {
	var out []int
	for i := 1; i < len(rows); i++ {
		if !blank(rows[i]) {
			out = append(out, i)
		}
	}
	return out
}

func checkRowCount(positions []int, t *entity.Table) error {
	if len(positions) != len(t.Rows) {
		return common.NewAppError(common.CodeEncode,
			fmt.Sprintf("sheet has %d data rows, table has %d", len(positions), len(t.Rows)), common.ErrInvalidInput)
	}
	return nil
}

// headerKey folds "AssetId", "Asset ID" and "asset_id" onto the same key.
func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

// columnIndex maps canonical column names to their position in header.
func columnIndex(header []string) (map[string]int, error) {
	want := make(map[string]string, len(constants.Columns))
	for _, c := range constants.Columns {
		want[headerKey(c)] = c
	}
	idx := make(map[string]int)
	for i, h := range header {
		if c, ok := want[headerKey(h)]; ok {
			if _, dup := idx[c]; !dup {
				idx[c] = i
			}
		}
	}
	if _, ok := idx[constants.ColAssetID]; !ok {
		return nil, common.NewAppError(common.CodeDecode, fmt.Sprintf("expected %q column in header", constants.ColAssetID), common.ErrInvalidInput)
	}
	return idx, nil
}

// cellReader extracts typed values from one raw row.
type cellReader struct {
	idx   map[string]int
	cells []string
	row   int // 1-based sheet row, for error messages
	date  func(raw string) (*time.Time, error)
}

func (c cellReader) text(col string) string {
	i, ok := c.idx[col]
	if !ok || i >= len(c.cells) {
		return ""
	}
	return strings.TrimSpace(c.cells[i])
}

func (c cellReader) optText(col string) *string {
	if v := c.text(col); v != "" {
		return &v
	}
	return nil
}

func (c cellReader) assetID() (*int64, error) {
	raw := c.text(constants.ColAssetID)
	if raw == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		return nil, fmt.Errorf("row %d: asset_id %q is not an integer", c.row, raw)
	}
	v := int64(f)
	return &v, nil
}

func (c cellReader) dateCol(col string) (*time.Time, error) {
	raw := c.text(col)
	if raw == "" {
		return nil, nil
	}
	d, err := c.date(raw)
	if err != nil {
		return nil, fmt.Errorf("row %d: %s: %w", c.row, col, err)
	}
	return d, nil
}

func (c cellReader) empty() bool { return blank(c.cells) }

func blank(cells []string) bool {
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (c cellReader) assetRow() (entity.AssetRow, error) {
	id, err := c.assetID()
	if err != nil {
		return entity.AssetRow{}, err
	}
	serviceDate, err := c.dateCol(constants.ColServiceDate)
	if err != nil {
		return entity.AssetRow{}, err
	}
	nextDate, err := c.dateCol(constants.ColNextServiceDate)
	if err != nil {
		return entity.AssetRow{}, err
	}
	return entity.AssetRow{
		AssetID:            id,
		AssetTag:           c.text(constants.ColAssetTag),
		SerialNumber:       c.text(constants.ColSerialNumber),
		CustomOrderNumber:  c.text(constants.ColCustomOrderNumber),
		CertificateNumber:  c.optText(constants.ColCertificateNumber),
		ServiceDate:        serviceDate,
		NextServiceDate:    nextDate,
		WireRollCertNumber: c.optText(constants.ColWireRollCertNumber),
	}, nil
}

// values returns the typed cell values of r keyed by canonical column.
// A nil value clears the cell.
func values(r entity.AssetRow) map[string]any {
	v := map[string]any{
		constants.ColAssetID:            nil,
		constants.ColAssetTag:           r.AssetTag,
		constants.ColSerialNumber:       r.SerialNumber,
		constants.ColCustomOrderNumber:  r.CustomOrderNumber,
		constants.ColCertificateNumber:  nil,
		constants.ColServiceDate:        nil,
		constants.ColNextServiceDate:    nil,
		constants.ColWireRollCertNumber: nil,
	}
	if r.AssetID != nil {
		v[constants.ColAssetID] = *r.AssetID
	}
	if r.CertificateNumber != nil {
		v[constants.ColCertificateNumber] = *r.CertificateNumber
	}
	if r.ServiceDate != nil {
		v[constants.ColServiceDate] = *r.ServiceDate
	}
	if r.NextServiceDate != nil {
		v[constants.ColNextServiceDate] = *r.NextServiceDate
	}
	if r.WireRollCertNumber != nil {
		v[constants.ColWireRollCertNumber] = *r.WireRollCertNumber
	}
	return v
}

// record renders a row as text cells in canonical column order.
func record(r entity.AssetRow) []string {
	out := make([]string, 0, len(constants.Columns))
	if r.AssetID != nil {
		out = append(out, strconv.FormatInt(*r.AssetID, 10))
	} else {
		out = append(out, "")
	}
	return append(out,
		r.AssetTag,
		r.SerialNumber,
		r.CustomOrderNumber,
		deref(r.CertificateNumber),
		formatDate(r.ServiceDate),
		formatDate(r.NextServiceDate),
		deref(r.WireRollCertNumber),
	)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(constants.DateLayout)
}
