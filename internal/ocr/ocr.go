package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 300
	MaxPages      int // 0 = no limit

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// PageVisitor receives the OCR text of each page in order (1-based).
// Returning true stops the scan.
type PageVisitor func(page int, text string) (stop bool)

// ScanResult summarizes a page scan.
type ScanResult struct {
	Pages    int // pages rendered
	Scanned  int // pages OCRed before the visitor stopped the scan
	Read     int // pages tesseract returned text for
	Stopped  bool
	Duration time.Duration
	Warnings []string
}

var (
	// ErrEmptyPDF is returned when there are no bytes to rasterize.
	ErrEmptyPDF = errors.New("empty pdf")
	// ErrNoPagesRead is returned when pages were rendered but tesseract read none of them,
	// which points at the OCR installation rather than the document.
	ErrNoPagesRead = errors.New("no page could be read by tesseract")
)

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, execRunner{}, logger)
}

// NewExtractorWithRunner builds an Extractor that shells out through r.
func NewExtractorWithRunner(cfg Config, r Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: r, logger: logger}
}

// ScanPDF writes pdf to a temp file and scans it with ScanFile.
func (e *Extractor) ScanPDF(ctx context.Context, pdf []byte, visit PageVisitor) (ScanResult, error) {
	if len(pdf) == 0 {
		return ScanResult{}, ErrEmptyPDF
	}
	tmpDir, err := os.MkdirTemp("", "wcs-pdf-*")
	if err != nil {
		return ScanResult{}, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	path := filepath.Join(tmpDir, "certificate.pdf")
	if err := os.WriteFile(path, pdf, 0o600); err != nil {
		return ScanResult{}, fmt.Errorf("write temp pdf: %w", err)
	}
	return e.ScanFile(ctx, path, visit)
}

// ScanFile rasterizes every page of the PDF at path, then OCRs pages in order,
// handing each page's text to visit until it asks to stop.
func (e *Extractor) ScanFile(ctx context.Context, path string, visit PageVisitor) (ScanResult, error) {
	start := time.Now()
	e.logger.Debug("starting ocr scan", "path", path, "dpi", e.cfg.DPI)

	tmpDir, err := os.MkdirTemp("", "wcs-pp-*")
	if err != nil {
		return ScanResult{}, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	images, warns, err := e.rasterize(ctx, path, tmpDir)
	res := ScanResult{Pages: len(images), Warnings: warns}
	if err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		txt, w, err := e.tesseractOCR(ctx, img, i+1)
		res.Warnings = append(res.Warnings, w...)
		if err != nil {
			// a single unreadable page does not abort the scan
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		res.Scanned = i + 1
		res.Read++
		if visit(i+1, txt) {
			res.Stopped = true
			break
		}
	}
	res.Duration = time.Since(start)
	if res.Read == 0 {
		e.logger.Error("ocr.scan.unreadable", "path", path, "pages", res.Pages, "warnings", res.Warnings)
		return res, fmt.Errorf("%w: %d pages rendered", ErrNoPagesRead, res.Pages)
	}
	e.logger.Debug("ocr scan done",
		"path", path,
		"pages", res.Pages,
		"scanned", res.Scanned,
		"stopped", res.Stopped,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
