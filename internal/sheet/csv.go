package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

var utf8BOM = []byte("\xef\xbb\xbf")

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, common.NewAppError(common.CodeDecode, "read csv", err)
	}
	if len(rows) == 0 {
		return nil, common.NewAppError(common.CodeDecode, "csv has no header row", common.ErrInvalidInput)
	}
	return rows, nil
}

func decodeCSV(data []byte) (*entity.Table, error) {
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}
	t := &entity.Table{}
	for i, cells := range rows[1:] {
		c := cellReader{idx: idx, cells: cells, row: i + 2, date: entity.ParseDate}
		if c.empty() {
			continue
		}
		row, err := c.assetRow()
		if err != nil {
			return nil, common.NewAppError(common.CodeDecode, "parse csv row", err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func encodeCSV(t *entity.Table) ([]byte, error) {
	rows := make([][]string, 0, len(t.Rows)+1)
	rows = append(rows, constants.Columns)
	for _, r := range t.Rows {
		rows = append(rows, record(r))
	}
	return writeCSV(nil, rows)
}

func rewriteCSV(original []byte, t *entity.Table) ([]byte, error) {
	rows, err := readCSV(original)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}
	positions := dataRows(rows)
	if err := checkRowCount(positions, t); err != nil {
		return nil, err
	}

	rows[0] = append(rows[0], extendHeader(idx, len(rows[0]))...)
	width := len(rows[0])
	for i, pos := range positions {
		cells := rows[pos]
		for len(cells) < width {
			cells = append(cells, "")
		}
		rec := record(t.Rows[i])
		for c, col := range constants.Columns {
			cells[idx[col]] = rec[c]
		}
		rows[pos] = cells
	}

	var prefix []byte
	if bytes.HasPrefix(original, utf8BOM) {
		prefix = utf8BOM
	}
	return writeCSV(prefix, rows)
}

func writeCSV(prefix []byte, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(prefix)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	return buf.Bytes(), nil
}
