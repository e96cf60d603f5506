package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

type app struct {
	out      io.Writer
	logOut   io.Writer
	cfg      *common.Config
	log      *slog.Logger
	logLevel string
}

func newApp(out, logOut io.Writer) *app {
	return &app{out: out, logOut: logOut}
}

func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wirecert-sync",
		Short: "Sync Qualer wire-set service records into the SharePoint spreadsheet",
		Long: `wirecert-sync keeps the wire-set spreadsheet on SharePoint in step with the
asset service records in Qualer. Stale rows are refreshed from the latest
service record and the wire roll number is read off the scanned certificate
with OCR.

Configuration comes from the environment, optionally seeded from .env and
.env.local in the working directory.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	root.AddCommand(
		a.runCommand(),
		a.onceCommand(),
		a.ocrCommand(),
		a.assetsCommand(),
		a.historyCommand(),
	)
	return root
}

// setup loads configuration and installs the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = common.LoadConfig()
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	a.log = common.NewLogger(a.logOut, a.cfg.Log)
	slog.SetDefault(a.log)
	a.log.Debug("config loaded", "command", cmd.Name())
	return nil
}
