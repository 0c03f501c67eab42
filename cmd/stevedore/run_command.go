package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/config"
	"github.com/harborlabs/stevedore/internal/pipeline"
	"github.com/harborlabs/stevedore/internal/record"
	"github.com/harborlabs/stevedore/internal/report"
	"github.com/harborlabs/stevedore/internal/staging"
)

type runOptions struct {
	dir      string
	deselect []string
	retries  int
	out      string
	verbose  bool

	relKind, relHost, relDB, relUser, relPassword string
	relPort                                       int
	vecKind, vecHost, vecCollection, vecAPIKey    string
	vecPort                                       int
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run --dir <folder>",
		Short: "Run the full pipeline over a local folder",
		Long: "Selects every file in the folder, uploads and analyzes the batch, " +
			"optionally deselects files by name, ingests the rest into the configured " +
			"targets, retries failures, and prints the aggregated report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "Folder whose files are selected (required)")
	cmd.Flags().StringArrayVar(&opts.deselect, "deselect", nil, "File name to deselect during curation (repeatable)")
	cmd.Flags().IntVar(&opts.retries, "retries", 2, "Retry passes per stage for failed files")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the JSON report to this path")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Log pipeline progress")

	cmd.Flags().StringVar(&opts.relKind, "relational-kind", "postgres", "Relational target kind")
	cmd.Flags().StringVar(&opts.relHost, "relational-host", "localhost", "Relational target host")
	cmd.Flags().IntVar(&opts.relPort, "relational-port", 5432, "Relational target port")
	cmd.Flags().StringVar(&opts.relDB, "relational-database", "stevedore", "Relational target database")
	cmd.Flags().StringVar(&opts.relUser, "relational-user", "stevedore", "Relational target user")
	cmd.Flags().StringVar(&opts.relPassword, "relational-password", "", "Relational target password")
	cmd.Flags().StringVar(&opts.vecKind, "vector-kind", "pgvector", "Vector target kind")
	cmd.Flags().StringVar(&opts.vecHost, "vector-host", "localhost", "Vector target host")
	cmd.Flags().IntVar(&opts.vecPort, "vector-port", 5432, "Vector target port")
	cmd.Flags().StringVar(&opts.vecCollection, "vector-collection", "documents", "Vector target collection")
	cmd.Flags().StringVar(&opts.vecAPIKey, "vector-api-key", "", "Vector target API key")

	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runPipeline(ctx context.Context, opts *runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := batch.NewClient(cfg.Services.UploadURL, cfg.Services.AnalyzeURL, cfg.Services.IngestURL, cfg.Services.Timeout)
	payloads := staging.NewLocalDir(opts.dir)
	ctrl := pipeline.NewController(client, payloads, logger)

	if err := selectFolder(ctrl, payloads, opts.dir); err != nil {
		return err
	}
	if err := ctrl.Advance(); err != nil {
		return fmt.Errorf("no files selected in %s: %w", opts.dir, err)
	}

	// Upload stage: full run, then retry passes over what is left.
	if err := ctrl.RunUpload(ctx); err != nil {
		logger.Warn("upload batch failed", slog.String("error", err.Error()))
	}
	for i := 0; i < opts.retries && len(pipeline.FailedUploadSubset(ctrl.Snapshot())) > 0; i++ {
		if err := ctrl.RetryUpload(ctx); err != nil {
			logger.Warn("upload retry failed", slog.String("error", err.Error()))
		}
	}
	if err := ctrl.Advance(); err != nil {
		return fmt.Errorf("upload incomplete: %w", err)
	}

	// Processing stage: a full run resets derived fields; retries touch
	// only the files still unprocessed.
	if err := ctrl.RunAnalysis(ctx); err != nil {
		logger.Warn("analysis batch failed", slog.String("error", err.Error()))
	}
	for i := 0; i < opts.retries && len(pipeline.FailedAnalysisSubset(ctrl.Snapshot())) > 0; i++ {
		if err := ctrl.RetryAnalysis(ctx); err != nil {
			logger.Warn("analysis retry failed", slog.String("error", err.Error()))
		}
	}
	if err := ctrl.Advance(); err != nil {
		return fmt.Errorf("processing incomplete: %w", err)
	}
	logger.Info("processing complete",
		slog.Int("processed", len(ctrl.Snapshot().SelectedProcessed())))

	// Curation: deselect by name.
	if err := curate(ctrl, opts.deselect); err != nil {
		return err
	}
	if err := ctrl.Advance(); err != nil {
		return fmt.Errorf("curation left no files selected: %w", err)
	}

	db := batch.DatabaseConfig{
		Relational: batch.RelationalTarget{
			Kind: opts.relKind, Host: opts.relHost, Port: opts.relPort,
			Database: opts.relDB, User: opts.relUser, Password: opts.relPassword,
		},
		Vector: batch.VectorTarget{
			Kind: opts.vecKind, Host: opts.vecHost, Port: opts.vecPort,
			Collection: opts.vecCollection, APIKey: opts.vecAPIKey,
		},
	}

	// Ingestion stage: full run, then retry only the failed subset.
	if err := ctrl.RunIngestion(ctx, db); err != nil {
		logger.Warn("ingestion batch failed", slog.String("error", err.Error()))
	}
	for i := 0; i < opts.retries && len(pipeline.FailedIngestionSubset(ctrl.Snapshot())) > 0; i++ {
		if err := ctrl.RetryIngestion(ctx, db); err != nil {
			logger.Warn("ingestion retry failed", slog.String("error", err.Error()))
		}
	}
	if err := ctrl.Advance(); err != nil {
		return fmt.Errorf("no file was ingested: %w", err)
	}

	snap := report.Build(uuid.New().String(), ctrl.Stage().String(), ctrl.Snapshot(), db)
	fmt.Println(renderReport(snap))

	if opts.out != "" {
		data, err := snap.JSON()
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		if err := os.WriteFile(opts.out, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if failed := pipeline.FailedIngestionSubset(ctrl.Snapshot()); len(failed) > 0 {
		return fmt.Errorf("%d file(s) failed ingestion", len(failed))
	}
	return nil
}

// selectFolder registers every regular file under dir as a selected
// record, keyed by base name. Duplicate base names in different
// subfolders cannot be distinguished by the remote services, so they are
// rejected here rather than silently shadowed.
func selectFolder(ctrl *pipeline.Controller, payloads *staging.LocalDir, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rec := record.New(d.Name(), rel, info.Size())
		if err := ctrl.AddFile(rec); err != nil {
			return fmt.Errorf("select %s: %w", rel, err)
		}
		payloads.Register(rec.Name, rel)
		return nil
	})
}

func curate(ctrl *pipeline.Controller, names []string) error {
	if len(names) == 0 {
		return nil
	}
	byName := make(map[string]string)
	for _, r := range ctrl.Snapshot().Records() {
		byName[r.Name] = r.ID
	}
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return fmt.Errorf("deselect %s: no such file", name)
		}
		if err := ctrl.SetSelected(id, false); err != nil {
			return fmt.Errorf("deselect %s: %w", name, err)
		}
	}
	return nil
}
