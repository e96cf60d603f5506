package constants

import "strings"

// Spreadsheet formats the sheet codec can read and write.
const (
	XLSX = "XLSX"
	CSV  = "CSV"
)

// CertificateExt is the suffix a certificate document must carry.
const CertificateExt = ".pdf"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension to a spreadsheet format, or "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "xlsx", "xlsm":
		return XLSX
	case "csv":
		return CSV
	default:
		return ""
	}
}
