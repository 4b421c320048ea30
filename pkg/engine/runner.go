package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/bordereaux/pkg/config"
	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/storage"
	"github.com/polisai/bordereaux/pkg/table"
	"github.com/polisai/bordereaux/pkg/telemetry"
)

// Options carries the collaborators a Runner needs besides configuration.
type Options struct {
	Store storage.ArtifactStore
	// Catalog records each stage invocation when non-nil.
	Catalog storage.RunStore
	// Metrics collects gauges for a Prometheus textfile when non-nil.
	Metrics *telemetry.RunMetrics
	Run     domain.RunContext
	// DryRun keeps every write in memory; see Runner.Pending.
	DryRun bool
	Logger *slog.Logger
}

// Report summarises one stage invocation.
type Report struct {
	Stage      string
	Outcome    runtime.Outcome
	InputRows  int
	Accepted   int
	Exceptions int
	Duration   time.Duration
	// Written lists the artifact paths the stage produced.
	Written []string
}

// Runner executes pipeline steps sequentially against an artifact store.
type Runner struct {
	store    storage.ArtifactStore
	overlay  *storage.OverlayStore
	catalog  storage.RunStore
	metrics  *telemetry.RunMetrics
	steps    *stepRegistry
	run      domain.RunContext
	readOpts table.ReadOptions
	logger   *slog.Logger
}

// NewRunner wires the steps described by cfg.
func NewRunner(cfg *config.Config, opts Options) (*Runner, error) {
	if opts.Store == nil {
		return nil, errors.New("runner requires an artifact store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		store:    opts.Store,
		catalog:  opts.Catalog,
		metrics:  opts.Metrics,
		run:      opts.Run,
		readOpts: table.ReadOptions{Encoding: cfg.Paths.InputEncoding},
		logger:   logger,
	}
	if opts.DryRun {
		r.overlay = storage.NewOverlayStore(opts.Store)
		r.store = r.overlay
	}

	steps, err := buildSteps(cfg, LayoutFromConfig(cfg.Paths), r.store, logger)
	if err != nil {
		return nil, err
	}
	r.steps = steps
	return r, nil
}

// Pending lists the artifacts a dry run would have written.
func (r *Runner) Pending() []string {
	if r.overlay == nil {
		return nil
	}
	return r.overlay.Written().Paths()
}

// Steps returns the stage labels in execution order.
func (r *Runner) Steps() []string {
	return append([]string(nil), r.steps.order...)
}

// RunAll executes every step in order and stops at the first failure.
func (r *Runner) RunAll(ctx context.Context) ([]Report, error) {
	var reports []Report
	for _, step := range r.steps.ordered() {
		rep, err := r.execute(ctx, step)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// RunStage executes a single step by label or alias.
func (r *Runner) RunStage(ctx context.Context, name string) (Report, error) {
	step, err := r.steps.resolve(name)
	if err != nil {
		return Report{}, err
	}
	return r.execute(ctx, step)
}

func (r *Runner) execute(ctx context.Context, step *Step) (Report, error) {
	label := step.Label()
	started := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "bordereaux.stage",
		trace.WithAttributes(
			attribute.String("stage.name", label),
			attribute.String("run.id", r.run.ID),
		),
	)
	defer span.End()

	r.logger.Info("stage started", "stage", label, "run_id", r.run.ID)

	rep := Report{Stage: label, Outcome: runtime.OutcomeSuccess}
	err := r.invoke(ctx, step, &rep)
	rep.Duration = time.Since(started)

	if err != nil {
		rep.Outcome = runtime.OutcomeStructuralFailure
		if errors.Is(err, domain.ErrPartitionViolated) {
			rep.Outcome = runtime.OutcomePartitionViolation
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(rep.Outcome))
		r.logger.Error("stage failed", "stage", label, "run_id", r.run.ID, "outcome", rep.Outcome, "error", err)
	} else {
		span.SetAttributes(
			attribute.Int("stage.rows.input", rep.InputRows),
			attribute.Int("stage.rows.accepted", rep.Accepted),
			attribute.Int("stage.rows.exceptions", rep.Exceptions),
		)
		r.logger.Info("stage finished",
			"stage", label,
			"run_id", r.run.ID,
			"rows", rep.InputRows,
			"accepted", rep.Accepted,
			"exceptions", rep.Exceptions,
			"duration", rep.Duration,
		)
	}

	r.record(ctx, rep, started, err)
	return rep, err
}

func (r *Runner) invoke(ctx context.Context, step *Step, rep *Report) error {
	label := step.Label()

	in, err := r.load(ctx, step)
	if err != nil {
		return err
	}
	rep.InputRows = in.Rows()

	res, err := step.Stage.Execute(ctx, in)
	if err != nil {
		return err
	}
	if res.Accepted == nil || res.Exceptions == nil {
		return fmt.Errorf("%s: stage returned a nil output table", label)
	}
	if err := runtime.CheckPartition(label, rep.InputRows, res, step.KeyColumn); err != nil {
		return err
	}
	rep.Accepted = res.AcceptedCount()
	rep.Exceptions = res.Exceptions.Len()

	if step.ReasonColumn != "" {
		telemetry.RecordExceptionEvent(trace.SpanFromContext(ctx), label, countReasons(res.Exceptions, step.ReasonColumn))
	}

	if err := r.write(ctx, step.Accepted, res.Accepted, rep); err != nil {
		return err
	}
	if step.Exceptions != "" && len(res.Exceptions.Columns) > 0 {
		if err := r.write(ctx, step.Exceptions, res.Exceptions, rep); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(step.Artifacts))
	for name := range step.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, ok := res.Artifacts[name]
		if !ok || t == nil {
			continue
		}
		if err := r.write(ctx, step.Artifacts[name], t, rep); err != nil {
			return err
		}
	}
	return nil
}

// load reads the step's inputs. The configured input encoding only applies
// to carrier source files; stage outputs and reference data are UTF-8.
func (r *Runner) load(ctx context.Context, step *Step) (runtime.Input, error) {
	label := step.Label()
	in := runtime.Input{References: map[string]*table.Table{}, Run: r.run}

	if step.SourceDir != "" {
		sources, err := r.sources(ctx, step)
		if err != nil {
			return in, err
		}
		for _, p := range sources {
			t, err := r.store.Read(ctx, p, r.readOpts)
			if err != nil {
				return in, domain.UnreadableReference(label, p, err)
			}
			in.Tables = append(in.Tables, t)
		}
	}

	for _, p := range step.Inputs {
		ok, err := r.store.Exists(ctx, p)
		if err != nil {
			return in, fmt.Errorf("%s: stat %s: %w", label, p, err)
		}
		if !ok {
			return in, domain.MissingInput(label, p)
		}
		t, err := r.store.Read(ctx, p, table.ReadOptions{})
		if err != nil {
			return in, domain.UnreadableReference(label, p, err)
		}
		r.logger.Info("input loaded", "stage", label, "path", p, "rows", t.Len())
		in.Tables = append(in.Tables, t)
	}

	for key, p := range step.References {
		ok, err := r.store.Exists(ctx, p)
		if err != nil {
			return in, fmt.Errorf("%s: stat %s: %w", label, p, err)
		}
		if !ok {
			r.logger.Debug("reference not present", "stage", label, "reference", key, "path", p)
			continue
		}
		t, err := r.store.Read(ctx, p, table.ReadOptions{})
		if err != nil {
			return in, domain.UnreadableReference(label, p, err)
		}
		r.logger.Info("reference loaded", "stage", label, "reference", key, "path", p, "rows", t.Len())
		in.References[key] = t
	}
	return in, nil
}

// sources lists the CSV files in the step's source directory. Spreadsheets
// are reported and skipped.
func (r *Runner) sources(ctx context.Context, step *Step) ([]string, error) {
	files, err := r.store.List(ctx, step.SourceDir)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.MissingInput(step.Label(), step.SourceDir)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: list %s: %w", step.Label(), step.SourceDir, err)
	}

	var out []string
	for _, p := range files {
		switch strings.ToLower(path.Ext(p)) {
		case ".csv":
			out = append(out, p)
		case ".xlsx", ".xls":
			r.logger.Warn("skipping spreadsheet source; convert it to CSV", "stage", step.Label(), "path", p)
		}
	}
	return out, nil
}

func (r *Runner) write(ctx context.Context, p string, t *table.Table, rep *Report) error {
	if err := r.store.Write(ctx, p, t); err != nil {
		return fmt.Errorf("%s: %w", rep.Stage, err)
	}
	rep.Written = append(rep.Written, p)
	r.logger.Debug("artifact written", "stage", rep.Stage, "path", p, "rows", t.Len())
	return nil
}

func (r *Runner) record(ctx context.Context, rep Report, started time.Time, runErr error) {
	m := telemetry.StageMetrics{
		RunID:         r.run.ID,
		Stage:         rep.Stage,
		Outcome:       rep.Outcome,
		Duration:      rep.Duration,
		InputRows:     rep.InputRows,
		AcceptedRows:  rep.Accepted,
		ExceptionRows: rep.Exceptions,
	}
	telemetry.RecordStageMetrics(ctx, m)
	if r.metrics != nil {
		r.metrics.Observe(m)
	}

	if r.catalog == nil {
		return
	}
	row := storage.StageRun{
		RunID:         r.run.ID,
		Stage:         rep.Stage,
		StartedAt:     started.UTC(),
		FinishedAt:    started.Add(rep.Duration).UTC(),
		InputRows:     rep.InputRows,
		AcceptedRows:  rep.Accepted,
		ExceptionRows: rep.Exceptions,
		Outcome:       string(rep.Outcome),
	}
	if runErr != nil {
		row.Error = runErr.Error()
	}
	if err := r.catalog.RecordStage(ctx, row); err != nil {
		r.logger.Warn("failed to record stage in run catalog", "stage", rep.Stage, "error", err)
	}
}

func countReasons(t *table.Table, column string) map[string]int {
	out := map[string]int{}
	for _, row := range t.Rows {
		reason := row[column]
		if reason == table.Missing {
			reason = "unspecified"
		}
		out[reason]++
	}
	return out
}
