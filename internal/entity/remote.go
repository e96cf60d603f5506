package entity

import "time"

// ServiceRecord is a calibration event for an asset as reported by Qualer.
type ServiceRecord struct {
	AssetID           int64      `json:"asset_id"`
	AssetTag          string     `json:"asset_tag"`
	SerialNumber      string     `json:"serial_number"`
	CustomOrderNumber string     `json:"custom_order_number"`
	CertificateNumber string     `json:"certificate_number"`
	ServiceDate       *time.Time `json:"service_date,omitempty"`
	NextServiceDate   *time.Time `json:"next_service_date,omitempty"`
}

// WorkItem links a custom order number to a service order and an asset.
type WorkItem struct {
	WorkItemNumber string `json:"work_item_number"`
	ServiceOrderID int64  `json:"service_order_id"`
	AssetID        int64  `json:"asset_id"`
}

// CertificateDocument is a file attached to a service order.
type CertificateDocument struct {
	ServiceOrderID int64  `json:"service_order_id"`
	DocumentName   string `json:"document_name"`
	GUID           string `json:"guid"`
}

// Asset is an entry of the Qualer asset manager list.
type Asset struct {
	AssetID      int64  `json:"asset_id"`
	AssetName    string `json:"asset_name"`
	AssetTag     string `json:"asset_tag"`
	SerialNumber string `json:"serial_number"`
}
