package main

import (
	"context"

	"github.com/joseph-ayodele/wirecert-sync/internal/certificate"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/graph"
	"github.com/joseph-ayodele/wirecert-sync/internal/journal"
	"github.com/joseph-ayodele/wirecert-sync/internal/ocr"
	"github.com/joseph-ayodele/wirecert-sync/internal/persist"
	"github.com/joseph-ayodele/wirecert-sync/internal/pipeline"
	"github.com/joseph-ayodele/wirecert-sync/internal/qualer"
)

func (a *app) qualerClient() (*qualer.Client, error) {
	if err := a.cfg.ValidateQualer(); err != nil {
		return nil, err
	}
	return qualer.NewClient(qualer.Config{
		BaseURL: a.cfg.Qualer.BaseURL,
		APIKey:  a.cfg.Qualer.APIKey,
		Timeout: a.cfg.Qualer.Timeout,
	}, a.log)
}

func (a *app) extractor() *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Pdftoppm:      a.cfg.OCR.Pdftoppm,
		Tesseract:     a.cfg.OCR.Tesseract,
		TesseractLang: a.cfg.OCR.TesseractLang,
		TessdataDir:   a.cfg.OCR.TessdataDir,
		DPI:           a.cfg.OCR.DPI,
		MaxPages:      a.cfg.OCR.MaxPages,
	}, a.log)
}

func (a *app) openJournal(ctx context.Context) (*journal.Journal, error) {
	return journal.Open(ctx, journal.Config{DSN: a.cfg.Journal.DSN}, a.log)
}

// buildPipeline wires every collaborator of a sync pass. Missing credentials fail here.
// The returned cleanup closes the journal, if one was opened.
func (a *app) buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	qc, err := a.qualerClient()
	if err != nil {
		return nil, nil, err
	}
	drive, err := graph.NewDriveClient(ctx, graph.Config{
		Endpoint: a.cfg.Graph.Endpoint,
		DriveID:  a.cfg.Graph.DriveID,
		Timeout:  a.cfg.Graph.Timeout,
		Credentials: graph.Credentials{
			AuthorityHost: a.cfg.Graph.AuthorityHost,
			TenantID:      a.cfg.Graph.TenantID,
			ClientID:      a.cfg.Graph.ClientID,
			ClientSecret:  a.cfg.Graph.ClientSecret,
		},
	}, a.log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var j pipeline.Journal
	if jr, err := a.openJournal(ctx); err != nil {
		a.log.Warn("journal unavailable, runs will not be recorded", "error", err)
	} else {
		j = jr
		cleanup = jr.Close
	}

	syncer := persist.NewSyncer(drive, persist.Policy{
		MaxAttempts:    a.cfg.Upload.MaxAttempts,
		InitialBackoff: a.cfg.Upload.InitialBackoff,
	}, a.log)
	resolver := certificate.NewResolver(qc, a.extractor(), a.log)

	p, err := pipeline.New(pipeline.Config{
		FilePath:  a.cfg.Sheet.FilePath,
		SheetName: a.cfg.Sheet.SheetName,
	}, qc, resolver, drive, syncer, j, a.log)
	if err != nil {
		cleanup()
		return nil, nil, common.WrapError(err, "build pipeline")
	}
	return p, cleanup, nil
}
