package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-01", "2024-03-01T13:45:00", "2024-03-01T23:59:59.123", "2024-03-01T08:00:00Z", "03/01/2024", "3/1/2024"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, *got, in)
	}

	got, err := ParseDate("  ")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("March first")
	assert.Error(t, err)
}

func TestSameDate(t *testing.T) {
	a := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	c := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.True(t, SameDate(&a, &b))
	assert.False(t, SameDate(&a, &c))
	assert.False(t, SameDate(nil, &a))
	assert.False(t, SameDate(nil, nil))
}

func TestCompactTag(t *testing.T) {
	assert.Equal(t, "WS12A", CompactTag(" WS 12 A "))
}

func TestTableCloneIsDeep(t *testing.T) {
	id := int64(1)
	roll := "WR"
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := &Table{Rows: []AssetRow{{AssetID: &id, WireRollCertNumber: &roll, ServiceDate: &d}}}

	c := tbl.Clone()
	*c.Rows[0].AssetID = 2
	*c.Rows[0].WireRollCertNumber = "changed"
	*c.Rows[0].ServiceDate = d.AddDate(1, 0, 0)

	assert.Equal(t, int64(1), *tbl.Rows[0].AssetID)
	assert.Equal(t, "WR", *tbl.Rows[0].WireRollCertNumber)
	assert.Equal(t, d, *tbl.Rows[0].ServiceDate)
}
