package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partscatalog/sitemap/internal/config"
	"partscatalog/sitemap/internal/container"
	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/logging"
	"partscatalog/sitemap/internal/sitemap"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Errorf("❌ %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitemap",
		Short:         "Sitemap generator for the parts catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		newGenerateCmd(),
		newServeCmd(),
		newStatusCmd(),
		newVerifyCmd(),
	)
	return root
}

// withContainer loads configuration, wires the application and hands it to fn.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, app *container.Container) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Setup(cfg.Log)
	log.Info("Configuration loaded successfully")

	ctx := cmd.Context()
	app, err := container.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer app.Close()

	return fn(ctx, app)
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run a full batch generation into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				log.Info("Starting sitemap generation...")
				report, err := app.Generate(ctx)
				if err != nil {
					return err
				}
				log.Infof("🎉 Sitemap index available at %s", report.IndexURL)
				return nil
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve sitemaps rendered on demand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				return app.Serve(ctx)
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent batch run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				report, err := app.Status(ctx)
				if errors.Is(err, domain.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No run recorded yet")
					return nil
				}
				if err != nil {
					return err
				}
				printReport(cmd, report)
				return nil
			})
		},
	}
}

func printReport(cmd *cobra.Command, r *domain.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:          %s (%s)\n", r.ID, r.Mode)
	fmt.Fprintf(out, "Phase:        %s\n", r.Phase)
	fmt.Fprintf(out, "Started:      %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if r.Finished() {
		fmt.Fprintf(out, "Finished:     %s (%s)\n", r.FinishedAt.Format("2006-01-02 15:04:05 MST"), r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(out, "Rows visited: %d\n", r.RowsVisited)
	fmt.Fprintf(out, "Entries:      %d (%d collisions)\n", r.Entries, r.Collisions)
	fmt.Fprintf(out, "Shards:       %d\n", len(r.Shards))
	if r.IndexURL != "" {
		fmt.Fprintf(out, "Index:        %s\n", r.IndexURL)
	}
	if r.Failed() {
		fmt.Fprintf(out, "Error:        %s\n", r.Error)
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <dir>",
		Short: "Check a generated sitemap tree against the URL caps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := sitemap.Verify(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d shards, %d entries\n", report.Shards, report.Entries)
			for _, p := range report.Problems {
				fmt.Fprintf(out, "  ✗ %s\n", p)
			}
			if !report.OK() {
				return fmt.Errorf("%d problems found in %s", len(report.Problems), args[0])
			}
			fmt.Fprintln(out, "✓ sitemap tree is valid")
			return nil
		},
	}
}
