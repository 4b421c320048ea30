// Package consolidate assembles the final deliverables from the business
// stage outputs and takes a census of every stage's exceptions.
package consolidate

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

// Reference keys for the optional deliverable inputs.
const (
	EligibilityReference  = "lidac"
	AccumulationReference = "accumulation"
)

// Deliverable names. The ledger export is the accepted table; the others are
// returned as artifacts.
const (
	IntacctExport     = "phase1_intacct_export"
	LIDACReport       = "phase1_lidac_report"
	ZIPAccumulation   = "phase1_zip_accumulation"
	ExceptionsSummary = "phase1_exceptions_summary"
)

// ExceptionFile names one stage's exception artifact.
type ExceptionFile struct {
	Step string
	Path string
}

// Source is the read side of an artifact store.
type Source interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string, opts table.ReadOptions) (*table.Table, error)
}

// Config holds consolidation settings.
type Config struct {
	// ExceptionFiles lists the exception artifacts to count, in census order.
	ExceptionFiles []ExceptionFile
	// Source is where exception artifacts are read from. A nil Source yields
	// an empty census.
	Source Source
	Logger *slog.Logger
}

// Stage is the consolidation stage.
type Stage struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a consolidation stage.
func New(cfg Config) *Stage {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{cfg: cfg, logger: logger}
}

// Name implements runtime.Stage.
func (s *Stage) Name() string { return domain.StageConsolidate }

// Execute implements runtime.Stage. The primary input is the journal line
// table; it passes through to the export with its columns reordered.
func (s *Stage) Execute(ctx context.Context, in runtime.Input) (runtime.Result, error) {
	lines := in.Primary()
	if lines == nil {
		return runtime.Result{}, domain.MissingInput(s.Name(), schema.JournalLine.Name)
	}

	export := Reorder(lines, schema.IntacctExportOrder)
	export.Name = IntacctExport

	report := s.optional(in, EligibilityReference, schema.LIDACReportOrder)
	report = Reorder(report, schema.LIDACReportOrder)
	report.Name = LIDACReport

	acc := s.optional(in, AccumulationReference, schema.AccumulationBucket.Columns())
	acc = table.Enforce(acc, schema.AccumulationBucket)
	acc.Name = ZIPAccumulation

	census, err := s.Census(ctx)
	if err != nil {
		return runtime.Result{}, err
	}

	s.logger.Info("consolidation complete",
		"stage", s.Name(),
		"run_id", in.Run.ID,
		"export_rows", export.Len(),
		"lidac_rows", report.Len(),
		"accumulation_rows", acc.Len(),
		"exception_files", census.Len(),
	)

	return runtime.Result{
		Accepted:   export,
		Exceptions: table.New(IntacctExport+"_exceptions"),
		Artifacts: map[string]*table.Table{
			LIDACReport:       report,
			ZIPAccumulation:   acc,
			ExceptionsSummary: census,
		},
	}, nil
}

func (s *Stage) optional(in runtime.Input, ref string, columns []string) *table.Table {
	t, ok := in.Reference(ref)
	if !ok {
		s.logger.Warn("deliverable input not found; writing empty deliverable", "stage", s.Name(), "reference", ref)
		return table.New(ref, columns...)
	}
	return t
}

// Census counts the rows of every configured exception file. Missing files
// are omitted; files that exist but cannot be parsed are listed with an
// empty row count.
func (s *Stage) Census(ctx context.Context) (*table.Table, error) {
	out := table.New(ExceptionsSummary, schema.ExceptionsSummary.Columns()...)
	if s.cfg.Source == nil {
		return out, nil
	}
	for _, f := range s.cfg.ExceptionFiles {
		ok, err := s.cfg.Source.Exists(ctx, f.Path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rows := table.Missing
		t, err := s.cfg.Source.Read(ctx, f.Path, table.ReadOptions{})
		if err != nil {
			s.logger.Warn("could not read exceptions file", "stage", s.Name(), "path", f.Path, "error", err)
		} else {
			rows = strconv.Itoa(t.Len())
		}
		out.Rows = append(out.Rows, table.Row{
			schema.SummaryStep: f.Step,
			schema.SummaryFile: f.Path,
			schema.SummaryRows: rows,
		})
	}
	return out, nil
}

// Reorder returns a copy of t whose columns start with the preferred columns
// t actually has, in preferred order, followed by the rest in their original
// order.
func Reorder(t *table.Table, preferred []string) *table.Table {
	out := t.Clone()
	cols := make([]string, 0, len(t.Columns))
	used := make(map[string]bool, len(preferred))
	for _, c := range preferred {
		if t.Has(c) && !used[c] {
			cols = append(cols, c)
			used[c] = true
		}
	}
	for _, c := range t.Columns {
		if !used[c] {
			cols = append(cols, c)
		}
	}
	out.Columns = cols
	return out
}
