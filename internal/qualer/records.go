package qualer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

type serviceRecordDTO struct {
	AssetID           int64   `json:"AssetId"`
	AssetTag          *string `json:"AssetTag"`
	SerialNumber      *string `json:"SerialNumber"`
	CustomOrderNumber *string `json:"CustomOrderNumber"`
	CertificateNumber *string `json:"CertificateNumber"`
	ServiceDate       *string `json:"ServiceDate"`
	NextServiceDate   *string `json:"NextServiceDate"`
}

type workItemDTO struct {
	WorkItemNumber *string `json:"WorkItemNumber"`
	ServiceOrderID int64   `json:"ServiceOrderId"`
	AssetID        *int64  `json:"AssetId"`
}

type documentDTO struct {
	DocumentName string `json:"DocumentName"`
	GUID         string `json:"Guid"`
}

type assetDTO struct {
	AssetID      int64   `json:"AssetId"`
	AssetName    *string `json:"AssetName"`
	AssetTag     *string `json:"AssetTag"`
	SerialNumber *string `json:"SerialNumber"`
}

// ServiceRecords lists every service record logged for assetID, in API order.
func (c *Client) ServiceRecords(ctx context.Context, assetID int64) ([]entity.ServiceRecord, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/api/assets/%d/assetservicerecords", assetID), nil, "application/json")
	if err != nil {
		return nil, err
	}
	var dtos []serviceRecordDTO
	if err := decode(c.schemas.serviceRecords, raw, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.ServiceRecord, 0, len(dtos))
	for _, d := range dtos {
		serviceDate, err := entity.ParseDate(str(d.ServiceDate))
		if err != nil {
			return nil, common.NewAppError(common.CodeDecode, "service date", err)
		}
		nextDate, err := entity.ParseDate(str(d.NextServiceDate))
		if err != nil {
			return nil, common.NewAppError(common.CodeDecode, "next service date", err)
		}
		if d.AssetID == 0 {
			d.AssetID = assetID
		}
		out = append(out, entity.ServiceRecord{
			AssetID:           d.AssetID,
			AssetTag:          str(d.AssetTag),
			SerialNumber:      str(d.SerialNumber),
			CustomOrderNumber: str(d.CustomOrderNumber),
			CertificateNumber: str(d.CertificateNumber),
			ServiceDate:       serviceDate,
			NextServiceDate:   nextDate,
		})
	}
	return out, nil
}

// WorkItems lists the service order items filed under a work item (custom order) number.
func (c *Client) WorkItems(ctx context.Context, workItemNumber string) ([]entity.WorkItem, error) {
	q := url.Values{"workItemNumber": {workItemNumber}}
	raw, err := c.get(ctx, "/api/service/workitems", q, "application/json")
	if err != nil {
		return nil, err
	}
	var dtos []workItemDTO
	if err := decode(c.schemas.workItems, raw, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.WorkItem, 0, len(dtos))
	for _, d := range dtos {
		w := entity.WorkItem{WorkItemNumber: str(d.WorkItemNumber), ServiceOrderID: d.ServiceOrderID}
		if w.WorkItemNumber == "" {
			w.WorkItemNumber = workItemNumber
		}
		if d.AssetID != nil {
			w.AssetID = *d.AssetID
		}
		out = append(out, w)
	}
	return out, nil
}

// Documents lists the files attached to a service order.
func (c *Client) Documents(ctx context.Context, serviceOrderID int64) ([]entity.CertificateDocument, error) {
	raw, err := c.get(ctx, "/api/service/workorders/"+strconv.FormatInt(serviceOrderID, 10)+"/documents", nil, "application/json")
	if err != nil {
		return nil, err
	}
	var dtos []documentDTO
	if err := decode(c.schemas.documents, raw, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.CertificateDocument, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, entity.CertificateDocument{
			ServiceOrderID: serviceOrderID,
			DocumentName:   d.DocumentName,
			GUID:           d.GUID,
		})
	}
	return out, nil
}

// Download fetches the binary content of a service order document.
func (c *Client) Download(ctx context.Context, serviceOrderID int64, guid string) ([]byte, error) {
	path := fmt.Sprintf("/api/service/workorders/%d/documents/%s", serviceOrderID, url.PathEscape(guid))
	return c.get(ctx, path, nil, "application/octet-stream")
}

// CollectAssets marks assets as collected so the "CollectedAssets" asset
// manager filter returns them.
func (c *Client) CollectAssets(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := c.postJSON(ctx, "/api/assets/collect", ids); err != nil {
		return fmt.Errorf("collect %d assets: %w", len(ids), err)
	}
	c.logger.Info("qualer.assets.collected", "count", len(ids))
	return nil
}

// Assets returns the asset manager list for a model filter such as "CollectedAssets".
func (c *Client) Assets(ctx context.Context, filter string) ([]entity.Asset, error) {
	var q url.Values
	if filter != "" {
		q = url.Values{"model_filter_type": {filter}}
	}
	raw, err := c.get(ctx, "/api/assets", q, "application/json")
	if err != nil {
		return nil, err
	}
	var dtos []assetDTO
	if err := decode(c.schemas.assets, raw, &dtos); err != nil {
		return nil, err
	}
	out := make([]entity.Asset, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, entity.Asset{
			AssetID:      d.AssetID,
			AssetName:    str(d.AssetName),
			AssetTag:     str(d.AssetTag),
			SerialNumber: str(d.SerialNumber),
		})
	}
	return out, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
