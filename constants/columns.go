package constants

// Spreadsheet column headers, in the order they are written.
const (
	ColAssetID            = "asset_id"
	ColAssetTag           = "asset_tag"
	ColSerialNumber       = "serial_number"
	ColCustomOrderNumber  = "custom_order_number"
	ColCertificateNumber  = "certificate_number"
	ColServiceDate        = "service_date"
	ColNextServiceDate    = "next_service_date"
	ColWireRollCertNumber = "wire_roll_cert_number"
)

// Columns is the canonical header row.
var Columns = []string{
	ColAssetID,
	ColAssetTag,
	ColSerialNumber,
	ColCustomOrderNumber,
	ColCertificateNumber,
	ColServiceDate,
	ColNextServiceDate,
	ColWireRollCertNumber,
}

// DateLayout is the layout used for date-only values in text form.
const DateLayout = "2006-01-02"
