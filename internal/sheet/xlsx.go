package sheet

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

// TableName is the Excel table the rows are published as.
const TableName = "Table1"

// date number format 14 renders as m/d/yyyy in the workbook locale
const dateNumFmt = 14

// resolveSheet returns sheetName, or the first sheet when no name is configured.
func resolveSheet(f *excelize.File, sheetName string) (string, error) {
	if idx, _ := f.GetSheetIndex(sheetName); idx != -1 {
		return sheetName, nil
	}
	list := f.GetSheetList()
	if len(list) == 0 {
		return "", common.NewAppError(common.CodeDecode, "workbook has no sheets", common.ErrInvalidInput)
	}
	if sheetName != "" {
		return "", common.NewAppError(common.CodeDecode, fmt.Sprintf("sheet %q not found", sheetName), common.ErrNotFound)
	}
	return list[0], nil
}

// readSheet opens the workbook and returns the raw rows of the target sheet.
// The caller closes f.
func readSheet(data []byte, sheetName string) (f *excelize.File, sheet string, rows [][]string, err error) {
	f, err = excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", nil, common.NewAppError(common.CodeDecode, "open workbook", err)
	}
	sheet, err = resolveSheet(f, sheetName)
	if err != nil {
		return f, "", nil, err
	}
	// raw values: dates come back as serial numbers instead of locale-formatted text
	rows, err = f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return f, "", nil, common.NewAppError(common.CodeDecode, "read rows", err)
	}
	if len(rows) == 0 {
		return f, "", nil, common.NewAppError(common.CodeDecode, "sheet has no header row", common.ErrInvalidInput)
	}
	return f, sheet, rows, nil
}

func decodeXLSX(data []byte, sheetName string) (*entity.Table, error) {
	f, _, rows, err := readSheet(data, sheetName)
	if f != nil {
		defer func() { _ = f.Close() }()
	}
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	t := &entity.Table{}
	for i, cells := range rows[1:] {
		c := cellReader{idx: idx, cells: cells, row: i + 2, date: parseExcelDate}
		if c.empty() {
			continue
		}
		row, err := c.assetRow()
		if err != nil {
			return nil, common.NewAppError(common.CodeDecode, "parse sheet row", err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// parseExcelDate accepts a date serial number or a textual date.
func parseExcelDate(raw string) (*time.Time, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil, err
		}
		d := entity.TruncateDate(t)
		return &d, nil
	}
	return entity.ParseDate(raw)
}

// writeRow sets the canonical cells of one sheet row. Dates get the date
// number format unless the cell already carries a style of its own.
func writeRow(f *excelize.File, sheet string, idx map[string]int, row int, r entity.AssetRow, dateStyle int) error {
	vals := values(r)
	for _, col := range constants.Columns {
		cell, err := excelize.CoordinatesToCellName(idx[col]+1, row)
		if err != nil {
			return err
		}
		switch v := vals[col].(type) {
		case nil:
			if cur, _ := f.GetCellValue(sheet, cell); cur == "" {
				continue
			}
			if err := f.SetCellValue(sheet, cell, nil); err != nil {
				return err
			}
		case time.Time:
			style, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if style == 0 {
				style = dateStyle
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		default:
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeXLSX(t *entity.Table, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateNumFmt})
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(constants.Columns))
	for i, h := range constants.Columns {
		idx[h] = i
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}
	for i, r := range t.Rows {
		if err := writeRow(f, sheetName, idx, i+2, r, dateStyle); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(t.Rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(constants.Columns), len(t.Rows)+1)
		if err := f.AddTable(sheetName, &excelize.Table{
			Range:     "A1:" + last,
			Name:      TableName,
			StyleName: "TableStyleMedium2",
		}); err != nil {
			return nil, fmt.Errorf("add table: %w", err)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheetName, "A", "A", 12) // asset id
	_ = f.SetColWidth(sheetName, "B", "D", 20) // tag, serial, order
	_ = f.SetColWidth(sheetName, "E", "E", 22) // certificate
	_ = f.SetColWidth(sheetName, "F", "G", 14) // dates
	_ = f.SetColWidth(sheetName, "H", "H", 24) // wire roll

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func rewriteXLSX(original []byte, t *entity.Table, sheetName string) ([]byte, error) {
	f, sheet, rows, err := readSheet(original, sheetName)
	if f != nil {
		defer func() { _ = f.Close() }()
	}
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

	for i, h := range extendHeader(idx, len(rows[0])) {
		cell, _ := excelize.CoordinatesToCellName(len(rows[0])+i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateNumFmt})
	if err != nil {
		return nil, err
	}
	for i, pos := range positions {
		if err := writeRow(f, sheet, idx, pos+1, t.Rows[i], dateStyle); err != nil {
			return nil, fmt.Errorf("write row %d: %w", pos+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
