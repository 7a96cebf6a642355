package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/config"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/db"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/llm"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/metrics"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/resolve"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/service"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/source"
)

var (
	runDir         string
	runConcurrency int
	runStats       bool
)

var runCmd = &cobra.Command{
	Use:   "run [documents...]",
	Short: "Run a batch of documents through the pipeline",
	Long: `Convert, classify, resolve and persist a batch of XML documents.

Documents may be local paths or gs://bucket/object URIs. With no arguments,
every .xml file under --dir is discovered and run.

The command exits non-zero only when the batch cannot be set up; individual
document failures are listed in the report.

Examples:
  oculus run data/xml/vol1.xml data/xml/vol2.xml
  oculus run --dir gs://papers/xml/ --concurrency 5
  oculus run --progress`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "directory or gs:// prefix to discover documents in (default from config)")
	runCmd.Flags().IntVarP(&runConcurrency, "concurrency", "n", 0, "maximum documents in flight (default from config)")
	runCmd.Flags().BoolVarP(&interactive, "progress", "p", false, "show a live progress display")
	runCmd.Flags().BoolVar(&runStats, "stats", true, "print per-stage timings after the report")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.Flags().Changed("concurrency") {
		cfg.MaxConcurrent = runConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sources := source.NewStore()
	defer sources.Close()

	location := runDir
	if location == "" {
		location = cfg.SourceDir
	}
	documents := args
	if len(documents) == 0 {
		var err error
		documents, err = sources.Discover(ctx, location)
		if err != nil {
			return fmt.Errorf("discover documents: %w", err)
		}
		if len(documents) == 0 {
			fmt.Printf("No documents found in %s\n", location)
			return nil
		}
	} else {
		location = ""
	}

	classifier, closeClassifier, err := newClassifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}
	defer closeClassifier()

	resolver, closeResolver, err := newResolver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init resolver: %w", err)
	}
	defer closeResolver()

	var store service.GraphStore
	var runStore service.RunStore
	switch cfg.Store {
	case config.StoreMemory:
		store = db.NewMemoryStore()
	default:
		client, err := connectDB(ctx)
		if err != nil {
			return err
		}
		store, runStore = client, client
	}

	runs := service.NewRunManager(runStore)
	run, err := runs.Start(ctx, location, documents, cfg.MaxConcurrent)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	observers := pipeline.Observers{collector, runs.Observer(ctx, run)}

	var ui *progressUI
	if interactive {
		ui = newProgressUI(run.ID, documents, stop)
		observers = append(observers, ui)
	}

	orchCfg := cfg.Orchestrator()
	orchCfg.Logger = logger.With("run_id", run.ID)
	orchCfg.Observer = observers
	orch, err := pipeline.New(orchCfg, service.Stages(service.Deps{
		Source:     sources,
		Classifier: classifier,
		Resolver:   resolver,
		Store:      store,
		Retry:      cfg.RetryPolicy(),
		BatchSize:  cfg.ClassifyBatchSize,
		Logger:     logger.With("run_id", run.ID),
	})...)
	if err != nil {
		runs.Fail(ctx, run, err)
		return err
	}

	var report *pipeline.Report
	if ui != nil {
		report, err = ui.Run(func() (*pipeline.Report, error) {
			return orch.RunBatch(ctx, documents)
		})
	} else {
		report, err = orch.RunBatch(ctx, documents)
	}
	if err != nil {
		runs.Fail(context.WithoutCancel(ctx), run, err)
		return err
	}
	runs.Complete(context.WithoutCancel(ctx), run, report)

	printReport(os.Stdout, run.ID, report)
	if runStats {
		printStats(os.Stdout, collector.Snapshot())
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Println("\nBatch was cancelled; documents not admitted are reported as failed at admission.")
	}
	return nil
}

func newClassifier(ctx context.Context, cfg config.Config) (service.Classifier, func(), error) {
	if cfg.LLMProvider == config.ProviderVertex {
		v, err := llm.NewVertexClassifier(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.LLMModel)
		if err != nil {
			return nil, nil, err
		}
		return v, func() { _ = v.Close() }, nil
	}
	m, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return m, func() {}, nil
}

// newResolver consults the authority table, when configured, before minting
// hash identifiers.
func newResolver(ctx context.Context, cfg config.Config) (resolve.Resolver, func(), error) {
	if cfg.AuthorityDB == "" {
		return resolve.HashResolver{}, func() {}, nil
	}
	a, err := resolve.OpenAuthority(ctx, cfg.AuthorityDB)
	if err != nil {
		return nil, nil, err
	}
	return resolve.Chain{a, resolve.HashResolver{}}, func() { _ = a.Close() }, nil
}

func printReport(w io.Writer, runID string, report *pipeline.Report) {
	completed, failed := report.Counts()
	fmt.Fprintf(w, "Run %s: %d completed, %d failed\n\n", runID, completed, failed)
	fmt.Fprintf(w, "%-40s %-10s %-15s %s\n", "DOCUMENT", "STATUS", "STAGE", "REASON")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------")
	for _, r := range service.Results(report) {
		fmt.Fprintf(w, "%-40s %-10s %-15s %s\n", truncate(r.Document, 40), r.Status, r.Stage, r.Reason)
	}
}

func printStats(w io.Writer, snap metrics.Snapshot) {
	if len(snap.Operations) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-16s %8s %8s %10s %10s %10s\n", "STAGE", "COUNT", "ERRORS", "AVG_MS", "MIN_MS", "MAX_MS")
	for _, op := range snap.Operations {
		fmt.Fprintf(w, "%-16s %8d %8d %10.1f %10d %10d\n", op.Name, op.Count, op.Errors, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
	fmt.Fprintf(w, "\nPeak documents in flight: %d\n", snap.MaxInFlight)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n+1:]
}
