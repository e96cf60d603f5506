package sheet

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

// Hash returns a hex SHA-256 over every row and its index. Reordering rows,
// editing any field, or toggling a value between empty and null changes the hash.
func Hash(t *entity.Table) string {
	h := sha256.New()
	for i, r := range t.Rows {
		h.Write([]byte(strconv.Itoa(i)))
		h.Write([]byte{0x1f})
		for _, v := range hashFields(r) {
			h.Write([]byte(v))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// hashFields is record() with nulls marked distinctly from empty strings.
func hashFields(r entity.AssetRow) []string {
	out := record(r)
	nulls := []bool{
		r.AssetID == nil,
		false, false, false,
		r.CertificateNumber == nil,
		r.ServiceDate == nil,
		r.NextServiceDate == nil,
		r.WireRollCertNumber == nil,
	}
	for i, isNull := range nulls {
		if isNull {
			out[i] = "\x00"
		}
	}
	return out
}
