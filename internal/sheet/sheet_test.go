package sheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func strp(s string) *string { return &s }

func int64p(v int64) *int64 { return &v }

func sampleTable() *entity.Table {
	return &entity.Table{Rows: []entity.AssetRow{
		{
			AssetID:            int64p(1235400),
			AssetTag:           "WS 100",
			SerialNumber:       "00123",
			CustomOrderNumber:  "CO-55",
			CertificateNumber:  strp("CERT-1"),
			ServiceDate:        date(2024, 3, 1),
			NextServiceDate:    date(2025, 3, 1),
			WireRollCertNumber: strp("WR-77"),
		},
		{AssetTag: "orphan"},
		{AssetID: int64p(2635568), AssetTag: "WS 200"},
	}}
}

func TestXLSX_EncodeDecodePreservesRows(t *testing.T) {
	in := sampleTable()
	data, err := Encode(in, constants.XLSX, "WireSets")
	require.NoError(t, err)

	out, err := Decode(data, constants.XLSX, "WireSets")
	require.NoError(t, err)

	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, Hash(in), Hash(out))
}

func TestXLSX_WritesTypedDatesAndTable(t *testing.T) {
	data, err := Encode(sampleTable(), constants.XLSX, "WireSets")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	typ, err := f.GetCellType("WireSets", "F2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)

	tables, err := f.GetTables("WireSets")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, TableName, tables[0].Name)
	assert.Equal(t, "A1:H4", tables[0].Range)
}

func TestXLSX_MissingSheet(t *testing.T) {
	data, err := Encode(sampleTable(), constants.XLSX, "WireSets")
	require.NoError(t, err)

	_, err = Decode(data, constants.XLSX, "Other")
	assert.ErrorIs(t, err, common.ErrNotFound)

	tbl, err := Decode(data, constants.XLSX, "")
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 3)
}

func TestCSV_DecodeHeaderVariants(t *testing.T) {
	data := []byte("AssetId,Asset Tag,Serial Number,Custom Order Number,Service Date,Next Service Date,Notes\n" +
		"1235401,WS 1,S-1,CO-1,2024-05-06,05/06/2025,ignored\n" +
		",,,,,,\n" +
		"1235402.0,WS 2,S-2,CO-2,,,\n")

	tbl, err := Decode(data, constants.CSV, "")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	r := tbl.Rows[0]
	assert.Equal(t, int64(1235401), *r.AssetID)
	assert.Equal(t, "WS 1", r.AssetTag)
	assert.Equal(t, *date(2024, 5, 6), *r.ServiceDate)
	assert.Equal(t, *date(2025, 5, 6), *r.NextServiceDate)
	assert.Nil(t, r.CertificateNumber)
	assert.Nil(t, r.WireRollCertNumber)

	assert.Equal(t, int64(1235402), *tbl.Rows[1].AssetID)
	assert.Nil(t, tbl.Rows[1].ServiceDate)
}

func TestCSV_EncodeDecode(t *testing.T) {
	in := sampleTable()
	data, err := Encode(in, constants.CSV, "")
	require.NoError(t, err)
	out, err := Decode(data, constants.CSV, "")
	require.NoError(t, err)
	assert.Equal(t, in.Rows, out.Rows)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("asset_tag,serial_number\nWS,1\n"), constants.CSV, "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Decode([]byte("asset_id\nabc\n"), constants.CSV, "")
	assert.ErrorContains(t, err, "not an integer")

	_, err = Decode([]byte("asset_id,service_date\n1,someday\n"), constants.CSV, "")
	assert.ErrorContains(t, err, "service_date")

	_, err = Decode(nil, "PARQUET", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHash(t *testing.T) {
	base := sampleTable()
	h := Hash(base)
	assert.Len(t, h, 64)
	assert.Equal(t, h, Hash(base.Clone()))

	edited := base.Clone()
	edited.Rows[0].WireRollCertNumber = nil
	assert.NotEqual(t, h, Hash(edited))

	swapped := base.Clone()
	swapped.Rows[0], swapped.Rows[2] = swapped.Rows[2], swapped.Rows[0]
	assert.NotEqual(t, h, Hash(swapped), "hash is order sensitive")

	nullVsEmpty := base.Clone()
	nullVsEmpty.Rows[1].CertificateNumber = strp("")
	assert.NotEqual(t, h, Hash(nullVsEmpty))

	assert.NotEqual(t, Hash(&entity.Table{}), h)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType(constants.CSV))
	assert.Contains(t, ContentType(constants.XLSX), "spreadsheetml")
}

// workbookWithExtras builds a sheet the way people keep it by hand: a notes
// column the sync knows nothing about, a blank spacer row, and a second sheet.
func workbookWithExtras(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", "WireSets"))
	_, err := f.NewSheet("Lookup")
	require.NoError(t, err)

	header := append(append([]string{}, constants.Columns...), "Notes")
	require.NoError(t, f.SetSheetRow("WireSets", "A1", &header))
	require.NoError(t, f.SetSheetRow("WireSets", "A2", &[]any{1235400, "WS 100", "00123", "CO-55", "CERT-1", "", "", "WR-77", "keep me"}))
	require.NoError(t, f.SetSheetRow("WireSets", "A4", &[]any{2635568, "WS 200", "", "", "", "", "", "", "second note"}))
	require.NoError(t, f.SetCellValue("Lookup", "A1", "roll vendor"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRewrite_XLSXKeepsUnknownColumnsAndSheets(t *testing.T) {
	original := workbookWithExtras(t)
	tbl, err := Decode(original, constants.XLSX, "WireSets")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	tbl.Rows[0].WireRollCertNumber = strp("WR-900")
	tbl.Rows[0].ServiceDate = date(2024, 9, 3)
	tbl.Rows[1].CustomOrderNumber = "CO-77"

	out, err := Rewrite(original, tbl, constants.XLSX, "WireSets")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"WireSets", "Lookup"}, f.GetSheetList())
	lookup, err := f.GetCellValue("Lookup", "A1")
	require.NoError(t, err)
	assert.Equal(t, "roll vendor", lookup)

	for cell, want := range map[string]string{"I1": "Notes", "I2": "keep me", "I4": "second note", "H2": "WR-900", "D4": "CO-77"} {
		got, err := f.GetCellValue("WireSets", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
	spacer, err := f.GetRows("WireSets")
	require.NoError(t, err)
	assert.Empty(t, spacer[2], "blank row stays blank")

	back, err := Decode(out, constants.XLSX, "WireSets")
	require.NoError(t, err)
	assert.Equal(t, Hash(tbl), Hash(back))
}

func TestRewrite_AppendsMissingCanonicalColumns(t *testing.T) {
	original := []byte("asset_id,asset_tag,Notes\n1,WS 1,hand written\n")
	tbl, err := Decode(original, constants.CSV, "")
	require.NoError(t, err)
	tbl.Rows[0].WireRollCertNumber = strp("WR-1")

	out, err := Rewrite(original, tbl, constants.CSV, "")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "asset_id,asset_tag,Notes,serial_number"))
	assert.True(t, strings.HasPrefix(lines[1], "1,WS 1,hand written,"))
	assert.True(t, strings.HasSuffix(lines[1], ",WR-1"))

	back, err := Decode(out, constants.CSV, "")
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, back.Rows)
}

func TestRewrite_CSVKeepsBOMAndExtraColumns(t *testing.T) {
	original := append([]byte("\xef\xbb\xbf"), []byte("Notes,"+strings.Join(constants.Columns, ",")+"\n"+
		"first,1,WS 1,S-1,CO-1,,,,\n")...)
	tbl, err := Decode(original, constants.CSV, "")
	require.NoError(t, err)
	tbl.Rows[0].CustomOrderNumber = "CO-2"

	out, err := Rewrite(original, tbl, constants.CSV, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("\xef\xbb\xbf")))
	assert.Contains(t, string(out), "first,1,WS 1,S-1,CO-2,")
}

func TestRewrite_Errors(t *testing.T) {
	original := []byte("asset_id,asset_tag\n1,WS 1\n2,WS 2\n")
	tbl, err := Decode(original, constants.CSV, "")
	require.NoError(t, err)

	tbl.Rows = tbl.Rows[:1]
	_, err = Rewrite(original, tbl, constants.CSV, "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Rewrite(original, tbl, "PARQUET", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	// nothing to rewrite: a fresh file is written
	out, err := Rewrite(nil, sampleTable(), constants.CSV, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), strings.Join(constants.Columns, ",")))
}
