// Package pipeline runs one reconciliation pass over the wire-set spreadsheet.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/certificate"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
	"github.com/joseph-ayodele/wirecert-sync/internal/journal"
	"github.com/joseph-ayodele/wirecert-sync/internal/persist"
	"github.com/joseph-ayodele/wirecert-sync/internal/reconcile"
	"github.com/joseph-ayodele/wirecert-sync/internal/sheet"
)

// RecordSource lists the service history of an asset.
type RecordSource interface {
	ServiceRecords(ctx context.Context, assetID int64) ([]entity.ServiceRecord, error)
}

// CertificateResolver finds the wire roll number for a service record.
type CertificateResolver interface {
	Resolve(ctx context.Context, record entity.ServiceRecord) (certificate.Resolution, error)
}

// Drive fetches the spreadsheet. Uploads go through the persist.Syncer.
type Drive interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// Journal records passes. A nil Journal disables recording.
type Journal interface {
	StartRun(ctx context.Context) (string, error)
	RecordRow(ctx context.Context, runID string, o journal.RowOutcome) error
	FinishRun(ctx context.Context, runID string, s journal.Summary) error
}

type Config struct {
	FilePath  string
	SheetName string
}

// Report summarizes one pass.
type Report struct {
	RunID      string
	Rows       []journal.RowOutcome
	BeforeHash string
	AfterHash  string
	Persist    persist.Outcome
	Duration   time.Duration

	refreshed int
}

// Changed counts rows whose content was refreshed from a newer service record,
// whatever became of the certificate lookup afterwards.
func (r Report) Changed() int { return r.refreshed }

type Pipeline struct {
	cfg      Config
	format   string
	records  RecordSource
	resolver CertificateResolver
	drive    Drive
	syncer   *persist.Syncer
	engine   *reconcile.Engine
	journal  Journal
	logger   *slog.Logger
}

func New(cfg Config, records RecordSource, resolver CertificateResolver, drive Drive, syncer *persist.Syncer, j Journal, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	format := constants.MapExtToFormat(path.Ext(cfg.FilePath))
	if format == "" {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported spreadsheet extension %q", path.Ext(cfg.FilePath)), common.ErrInvalidInput)
	}
	return &Pipeline{
		cfg:      cfg,
		format:   format,
		records:  records,
		resolver: resolver,
		drive:    drive,
		syncer:   syncer,
		engine:   reconcile.NewEngine(logger),
		journal:  j,
		logger:   logger,
	}, nil
}

// Run executes one full pass: download, reconcile each row in order, upload on change.
func (p *Pipeline) Run(ctx context.Context) (rep Report, err error) {
	start := time.Now()
	rep.RunID = p.startRun(ctx)
	ctx = common.WithRunID(ctx, rep.RunID)
	log := p.logger.With("run_id", rep.RunID)
	log.Info("sync.pass.start", "file", p.cfg.FilePath)

	defer func() {
		rep.Duration = time.Since(start)
		p.finishRun(ctx, &rep, err)
		if err != nil {
			log.Error("sync.pass.failed", "err", err, "elapsed_ms", rep.Duration.Milliseconds())
			return
		}
		log.Info("sync.pass.done",
			"rows", len(rep.Rows),
			"changed", rep.Changed(),
			"uploaded", rep.Persist.Uploaded,
			"elapsed_ms", rep.Duration.Milliseconds(),
		)
	}()

	raw, err := p.drive.Download(ctx, p.cfg.FilePath)
	if err != nil {
		return rep, fmt.Errorf("download spreadsheet: %w", err)
	}
	table, err := sheet.Decode(raw, p.format, p.cfg.SheetName)
	if err != nil {
		return rep, fmt.Errorf("decode spreadsheet: %w", err)
	}
	rep.BeforeHash = sheet.Hash(table)

	working := table.Clone()
	for i := range working.Rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		o, refreshed := p.processRow(ctx, log, i, &working.Rows[i])
		rep.Rows = append(rep.Rows, o)
		if refreshed {
			rep.refreshed++
		}
		if p.journal != nil && rep.RunID != "" {
			if jerr := p.journal.RecordRow(ctx, rep.RunID, o); jerr != nil {
				log.Warn("journal.record_row.failed", "row", i, "err", jerr)
			}
		}
	}

	rep.AfterHash = sheet.Hash(working)
	rep.Persist, err = p.syncer.Sync(ctx, rep.BeforeHash, rep.AfterHash, func() (persist.Payload, error) {
		content, err := sheet.Rewrite(raw, working, p.format, p.cfg.SheetName)
		if err != nil {
			return persist.Payload{}, err
		}
		return persist.Payload{Path: p.cfg.FilePath, ContentType: sheet.ContentType(p.format), Content: content}, nil
	})
	if err != nil {
		return rep, err
	}
	return rep, nil
}

// processRow reconciles one row in place and reports what happened to it, and
// whether the row content was refreshed.
func (p *Pipeline) processRow(ctx context.Context, log *slog.Logger, idx int, row *entity.AssetRow) (journal.RowOutcome, bool) {
	o := journal.RowOutcome{RowIndex: idx, AssetTag: row.AssetTag}
	if row.AssetID == nil {
		log.Warn("sync.row.skipped", "row", idx, "reason", "missing asset_id")
		o.Status = constants.RowStatusSkipped
		o.Message = "missing asset_id"
		return o, false
	}
	id := *row.AssetID
	o.AssetID = &id
	log = log.With("asset_id", id)

	records, err := p.records.ServiceRecords(ctx, id)
	if err != nil {
		log.Error("sync.row.fetch_failed", "err", err)
		o.Status = constants.RowStatusError
		o.Message = err.Error()
		return o, false
	}
	latest := reconcile.Latest(records)
	prevTag, prevSerial := row.AssetTag, row.SerialNumber
	res := p.engine.Reconcile(row, latest)
	switch res.Outcome {
	case reconcile.NoRecord:
		o.Status = constants.RowStatusNoRecord
		return o, false
	case reconcile.Unchanged:
		o.Status = constants.RowStatusUnchanged
		return o, false
	}
	drift := driftNote(res, prevTag, prevSerial, row)

	o.AssetTag = row.AssetTag
	log.Info("sync.row.stale", "asset_tag", row.AssetTag, "service_date", formatDate(row.ServiceDate))

	resolution, err := p.resolver.Resolve(ctx, *latest)
	switch {
	case err == nil && resolution.Found():
		roll := resolution.WireRoll
		row.WireRollCertNumber = &roll
		o.Status = constants.RowStatusRefreshed
		o.WireRoll = roll
		log.Info("sync.row.wire_roll", "wire_roll", roll, "document", resolution.DocumentName, "page", resolution.Page)
	case err == nil:
		o.Status = constants.RowStatusNoWireRoll
		o.Message = fmt.Sprintf("no wire roll line in %s", resolution.DocumentName)
	case certificate.IsMissingData(err):
		log.Warn("sync.row.certificate_missing", "err", err)
		o.Status = constants.RowStatusNoCert
		o.Message = err.Error()
	default:
		// the row stays refreshed with a cleared wire roll
		log.Error("sync.row.resolve_failed", "err", err)
		o.Status = constants.RowStatusError
		o.Message = err.Error()
	}
	if drift != "" {
		if o.Message != "" {
			o.Message += "; "
		}
		o.Message += drift
	}
	return o, true
}

// driftNote describes identity fields the refresh overwrote.
func driftNote(res reconcile.Result, prevTag, prevSerial string, row *entity.AssetRow) string {
	var parts []string
	if res.TagChanged {
		parts = append(parts, fmt.Sprintf("asset_tag %q -> %q", prevTag, row.AssetTag))
	}
	if res.SerialDrift {
		parts = append(parts, fmt.Sprintf("serial_number %q -> %q", prevSerial, row.SerialNumber))
	}
	return strings.Join(parts, "; ")
}

func (p *Pipeline) startRun(ctx context.Context) string {
	if p.journal == nil {
		return ""
	}
	id, err := p.journal.StartRun(ctx)
	if err != nil {
		p.logger.Warn("journal.start_run.failed", "err", err)
		return ""
	}
	return id
}

func (p *Pipeline) finishRun(ctx context.Context, rep *Report, runErr error) {
	if p.journal == nil || rep.RunID == "" {
		return
	}
	s := journal.Summary{
		RowsSeen:       len(rep.Rows),
		RowsChanged:    rep.Changed(),
		BeforeHash:     rep.BeforeHash,
		AfterHash:      rep.AfterHash,
		Uploaded:       rep.Persist.Uploaded,
		UploadAttempts: rep.Persist.Attempts,
	}
	switch {
	case runErr != nil:
		s.Status = constants.RunStatusFailed
		s.Error = runErr.Error()
	case rep.Persist.Uploaded:
		s.Status = constants.RunStatusUploaded
	default:
		s.Status = constants.RunStatusNoChange
	}
	// record the outcome even when the pass was cancelled
	if err := p.journal.FinishRun(context.WithoutCancel(ctx), rep.RunID, s); err != nil {
		p.logger.Warn("journal.finish_run.failed", "run_id", rep.RunID, "err", err)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(constants.DateLayout)
}
