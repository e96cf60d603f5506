package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/wirecert-sync/internal/certificate"
	"github.com/joseph-ayodele/wirecert-sync/internal/common"
	"github.com/joseph-ayodele/wirecert-sync/internal/journal"
	"github.com/joseph-ayodele/wirecert-sync/internal/scheduler"
	"github.com/joseph-ayodele/wirecert-sync/internal/server"
)

func (a *app) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll and sync until the daily cutoff hour",
		Long: `Run a sync pass every POLL_INTERVAL (default 10m) until the local hour
reaches POLL_CUTOFF_HOUR (default 17). A failed pass is logged and the
next one runs on schedule. When HEALTH_ADDR is set, a gRPC health
service reports SERVING while polling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, cleanup, err := a.buildPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr := a.cfg.Server.HealthAddr; addr != "" {
				hs, err := server.Listen(addr, a.log)
				if err != nil {
					return fmt.Errorf("health listen %s: %w", addr, err)
				}
				serveCtx, stopServe := context.WithCancel(ctx)
				defer stopServe()
				go func() {
					if err := hs.Serve(serveCtx); err != nil {
						a.log.Error("health server stopped", "error", err)
					}
				}()
				hs.SetServing(true)
				defer hs.SetServing(false)
			}

			loop := scheduler.NewLoop(scheduler.Config{
				Interval:   a.cfg.Poll.Interval,
				CutoffHour: a.cfg.Poll.CutoffHour,
			}, a.log)
			err = loop.Run(ctx, func(ctx context.Context) error {
				_, err := p.Run(ctx)
				return err
			})
			if errors.Is(err, context.Canceled) {
				a.log.Info("interrupted, shutting down")
				return nil
			}
			return err
		},
	}
}

func (a *app) onceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single sync pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, cleanup, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.out, "rows=%d changed=%d uploaded=%t attempts=%d elapsed=%s\n",
				len(rep.Rows), rep.Changed(), rep.Persist.Uploaded, rep.Persist.Attempts, rep.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func (a *app) ocrCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ocr <certificate.pdf>",
		Short:   "Print the wire roll number found in a local certificate PDF",
		Example: "  wirecert-sync ocr ./WS12_cert.pdf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var roll string
			var page int
			res, err := a.extractor().ScanPDF(cmd.Context(), pdf, func(p int, text string) bool {
				if r := certificate.ExtractWireRoll(text); r != "" {
					roll, page = r, p
					return true
				}
				return false
			})
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				a.log.Warn("ocr warning", "detail", w)
			}
			if roll == "" {
				_, _ = fmt.Fprintf(a.out, "no wire roll found (%d pages scanned)\n", res.Scanned)
				return nil
			}
			_, _ = fmt.Fprintf(a.out, "%s\t(page %d of %d)\n", roll, page, res.Pages)
			return nil
		},
	}
}

func (a *app) assetsCommand() *cobra.Command {
	var (
		filter  string
		collect []int64
	)
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List assets from the Qualer asset manager",
		Long: `List assets from the Qualer asset manager. Asset ids given with --collect,
or COLLECT_ASSET_IDS when the flag is absent, are marked collected first
so the CollectedAssets filter includes them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qc, err := a.qualerClient()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("collect") {
				collect = a.cfg.Qualer.CollectAssetIDs
			}
			if err := qc.CollectAssets(cmd.Context(), collect); err != nil {
				return err
			}
			assets, err := qc.Assets(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ASSET ID\tTAG\tSERIAL\tNAME")
			for _, as := range assets {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", as.AssetID, as.AssetTag, as.SerialNumber, as.AssetName)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "CollectedAssets", "model_filter_type passed to the asset manager")
	cmd.Flags().Int64SliceVar(&collect, "collect", nil, "asset ids to mark collected before listing")
	return cmd
}

func (a *app) historyCommand() *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync passes from the run journal",
		Long: `Show recent sync passes from the run journal. With --run, show what
happened to every row of that pass instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer j.Close()

			if runID != "" {
				return a.printRunRows(cmd.Context(), j, runID)
			}

			runs, err := j.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STARTED\tSTATUS\tROWS\tCHANGED\tUPLOADED\tERROR\tRUN ID")
			for _, r := range runs {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime), r.Status, r.RowsSeen, r.RowsChanged, r.Uploaded, r.Error, r.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the row outcomes of one run")
	return cmd
}

func (a *app) printRunRows(ctx context.Context, j *journal.Journal, runID string) error {
	rows, err := j.RunRows(ctx, runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return common.NewAppError(common.CodeJournal, fmt.Sprintf("no rows recorded for run %q", runID), common.ErrNotFound)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROW	ASSET ID	TAG	STATUS	WIRE ROLL	MESSAGE")
	for _, r := range rows {
		id := "-"
		if r.AssetID != nil {
			id = strconv.FormatInt(*r.AssetID, 10)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.RowIndex, id, r.AssetTag, r.Status, r.WireRoll, r.Message)
	}
	return tw.Flush()
}
