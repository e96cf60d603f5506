// Package certificate locates the calibration certificate for a service record
// and reads the wire roll number off it.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
	"github.com/joseph-ayodele/wirecert-sync/internal/ocr"
)

var (
	ErrNoOrderNumber = errors.New("service record has no custom order number")
	ErrNoWorkItem    = errors.New("no matching work item")
	ErrNoCertificate = errors.New("no certificate found")
	ErrEmptyDocument = errors.New("certificate download returned no content")
)

// Source is the slice of the calibration API the resolver needs.
type Source interface {
	WorkItems(ctx context.Context, workItemNumber string) ([]entity.WorkItem, error)
	Documents(ctx context.Context, serviceOrderID int64) ([]entity.CertificateDocument, error)
	Download(ctx context.Context, serviceOrderID int64, guid string) ([]byte, error)
}

// PageScanner OCRs a PDF page by page.
type PageScanner interface {
	ScanPDF(ctx context.Context, pdf []byte, visit ocr.PageVisitor) (ocr.ScanResult, error)
}

// Resolution describes where a wire roll number came from.
type Resolution struct {
	WireRoll       string // "" when no page carried the wire roll line
	ServiceOrderID int64
	DocumentName   string
	Page           int
}

// Found reports whether a wire roll number was extracted.
func (r Resolution) Found() bool { return r.WireRoll != "" }

type Resolver struct {
	source  Source
	scanner PageScanner
	logger  *slog.Logger
}

func NewResolver(source Source, scanner PageScanner, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, scanner: scanner, logger: logger}
}

// Resolve walks record -> work item -> certificate PDF -> OCR and returns the wire roll
// number from the first page that carries it. A certificate without the wire roll line
// is not an error: the returned Resolution simply has an empty WireRoll.
func (r *Resolver) Resolve(ctx context.Context, record entity.ServiceRecord) (Resolution, error) {
	start := time.Now()
	if record.CustomOrderNumber == "" {
		return Resolution{}, ErrNoOrderNumber
	}

	items, err := r.source.WorkItems(ctx, record.CustomOrderNumber)
	if err != nil {
		return Resolution{}, fmt.Errorf("list work items %q: %w", record.CustomOrderNumber, err)
	}
	item, ok := SelectWorkItem(items, record.AssetID)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: order %q asset %d", ErrNoWorkItem, record.CustomOrderNumber, record.AssetID)
	}
	res := Resolution{ServiceOrderID: item.ServiceOrderID}

	docs, err := r.source.Documents(ctx, item.ServiceOrderID)
	if err != nil {
		return res, fmt.Errorf("list documents for order %d: %w", item.ServiceOrderID, err)
	}
	doc, ok := SelectDocument(docs, record.AssetTag)
	if !ok {
		return res, fmt.Errorf("%w: order %d tag %q", ErrNoCertificate, item.ServiceOrderID, record.AssetTag)
	}
	res.DocumentName = doc.DocumentName

	pdf, err := r.source.Download(ctx, item.ServiceOrderID, doc.GUID)
	if err != nil {
		return res, fmt.Errorf("download %q: %w", doc.DocumentName, err)
	}
	if len(pdf) == 0 {
		return res, fmt.Errorf("%w: %q", ErrEmptyDocument, doc.DocumentName)
	}

	scan, err := r.scanner.ScanPDF(ctx, pdf, func(page int, text string) bool {
		if roll := ExtractWireRoll(text); roll != "" {
			res.WireRoll = roll
			res.Page = page
			return true
		}
		return false
	})
	for _, w := range scan.Warnings {
		r.logger.Warn("certificate.ocr.warning", "asset_id", record.AssetID, "document", doc.DocumentName, "warning", w)
	}
	if err != nil {
		return res, fmt.Errorf("ocr %q: %w", doc.DocumentName, err)
	}

	r.logger.Debug("certificate.resolve.done",
		"asset_id", record.AssetID,
		"service_order_id", item.ServiceOrderID,
		"document", doc.DocumentName,
		"pages", scan.Pages,
		"scanned", scan.Scanned,
		"found", res.Found(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if !res.Found() {
		r.logger.Info("wire roll not found in certificate", "asset_id", record.AssetID, "document", doc.DocumentName)
	}
	return res, nil
}

// IsMissingData reports whether err is one of the non-fatal lookup misses.
func IsMissingData(err error) bool {
	return errors.Is(err, ErrNoOrderNumber) ||
		errors.Is(err, ErrNoWorkItem) ||
		errors.Is(err, ErrNoCertificate) ||
		errors.Is(err, ErrEmptyDocument)
}
