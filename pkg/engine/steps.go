package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polisai/bordereaux/pkg/config"
	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/stages/accumulation"
	"github.com/polisai/bordereaux/pkg/stages/consolidate"
	"github.com/polisai/bordereaux/pkg/stages/eligibility"
	"github.com/polisai/bordereaux/pkg/stages/geo"
	"github.com/polisai/bordereaux/pkg/stages/ledger"
	"github.com/polisai/bordereaux/pkg/stages/normalize"
	"github.com/polisai/bordereaux/pkg/storage"
)

// Step binds a stage to the artifacts it reads and writes.
type Step struct {
	Stage runtime.Stage
	// SourceDir, when set, supplies one input table per CSV file in it.
	SourceDir string
	// Inputs are required primary input tables, in order.
	Inputs []string
	// References maps reference keys to paths. Absent files are left out of
	// the stage input; the stage decides whether that is fatal.
	References map[string]string
	Accepted   string
	// Exceptions is not written when empty or when the exceptions table has
	// no columns.
	Exceptions string
	// Artifacts maps extra result artifacts to paths.
	Artifacts map[string]string
	// KeyColumn identifies records for the disjointness check.
	KeyColumn string
	// ReasonColumn holds the exception category, used for span events.
	ReasonColumn string
}

// Label is the stage label, such as STEP3.
func (s *Step) Label() string { return s.Stage.Name() }

// stepRegistry stores steps by label with alias mappings.
type stepRegistry struct {
	steps   map[string]*Step
	aliases map[string]string
	order   []string
}

func newStepRegistry() *stepRegistry {
	return &stepRegistry{
		steps:   make(map[string]*Step),
		aliases: make(map[string]string),
	}
}

func (r *stepRegistry) register(step *Step, aliases ...string) {
	label := step.Label()
	r.steps[label] = step
	r.order = append(r.order, label)
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		r.aliases[alias] = label
	}
	r.aliases[strings.ToLower(label)] = label
}

func (r *stepRegistry) resolve(raw string) (*Step, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if label, ok := r.aliases[key]; ok {
		return r.steps[label], nil
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrStageNotFound, raw, strings.Join(r.names(), ", "))
}

func (r *stepRegistry) names() []string {
	out := make([]string, 0, len(r.aliases))
	for alias := range r.aliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// ordered returns the steps in execution order.
func (r *stepRegistry) ordered() []*Step {
	out := make([]*Step, 0, len(r.order))
	for _, label := range r.order {
		out = append(out, r.steps[label])
	}
	return out
}

// buildSteps wires every stage to its configuration and artifacts. The
// consolidation census reads exception files through store.
func buildSteps(cfg *config.Config, layout Layout, store storage.ArtifactStore, logger *slog.Logger) (*stepRegistry, error) {
	thresholds, err := thresholdsFromConfig(cfg.Accumulation)
	if err != nil {
		return nil, err
	}

	normalized := layout.Output("output_step2", NormalizedFile)
	located := layout.Output("output_step3", LocationFile)
	classified := layout.Output("output_step4", ClassifiedFile)
	accumulated := layout.Output("output_step5", AccumulationFile)
	journal := layout.Output("output_step6", JournalFile)

	exceptions := []consolidate.ExceptionFile{
		{Step: domain.StageNormalize, Path: layout.Output("output_step2", NormalizedExceptions)},
		{Step: domain.StageGeo, Path: layout.Output("output_step3", LocationExceptions)},
		{Step: domain.StageEligibility, Path: layout.Output("output_step4", ClassifiedExceptions)},
		{Step: domain.StageAccumulation, Path: layout.Output("output_step5", AccumulationExceptions)},
		{Step: domain.StageLedger, Path: layout.Output("output_step6", JournalExceptions)},
	}

	reg := newStepRegistry()

	reg.register(&Step{
		Stage: normalize.New(normalize.Config{
			IDWidth: cfg.Run.IDWidth,
			Logger:  logger,
		}),
		SourceDir:  layout.RawDir,
		Accepted:   normalized,
		Exceptions: exceptions[0].Path,
		KeyColumn:  schema.ProjectID,
	}, "step2", "2", "normalize", "normalization")

	reg.register(&Step{
		Stage: geo.New(geo.Config{
			SkipMembership: !cfg.Geo.MembershipCheck,
			Logger:         logger,
		}),
		Inputs:       []string{normalized},
		References:   map[string]string{geo.CrosswalkReference: layout.Crosswalk},
		Accepted:     located,
		Exceptions:   exceptions[1].Path,
		KeyColumn:    schema.ProjectID,
		ReasonColumn: schema.ZipErrorReason,
	}, "step3", "3", "geo", "geographic", "location")

	reg.register(&Step{
		Stage:        eligibility.New(eligibility.Config{Logger: logger}),
		Inputs:       []string{located},
		References:   map[string]string{eligibility.DatasetReference: layout.Eligibility},
		Accepted:     classified,
		Exceptions:   exceptions[2].Path,
		KeyColumn:    schema.ProjectID,
		ReasonColumn: schema.LIDACErrorReason,
	}, "step4", "4", "eligibility", "lidac", "cejst")

	reg.register(&Step{
		Stage: accumulation.New(accumulation.Config{
			Thresholds: &thresholds,
			Logger:     logger,
		}),
		Inputs:       []string{classified},
		Accepted:     accumulated,
		Exceptions:   exceptions[3].Path,
		KeyColumn:    schema.ProjectID,
		ReasonColumn: schema.AccumulationErrorReason,
	}, "step5", "5", "accumulation", "accumulate")

	reg.register(&Step{
		Stage: ledger.New(ledger.Config{
			Accounts: ledger.Accounts{
				Payable: cfg.Ledger.PayableAccount,
				Revenue: cfg.Ledger.RevenueAccount,
				Expense: cfg.Ledger.ExpenseAccount,
			},
			Currency: cfg.Ledger.Currency,
			IDWidth:  cfg.Run.IDWidth,
			Logger:   logger,
		}),
		Inputs:       []string{classified},
		Accepted:     journal,
		Exceptions:   exceptions[4].Path,
		KeyColumn:    schema.ProjectID,
		ReasonColumn: schema.LedgerErrorReason,
	}, "step6", "6", "ledger", "journal")

	reg.register(&Step{
		Stage: consolidate.New(consolidate.Config{
			ExceptionFiles: exceptions,
			Source:         store,
			Logger:         logger,
		}),
		Inputs: []string{journal},
		References: map[string]string{
			consolidate.EligibilityReference:  classified,
			consolidate.AccumulationReference: accumulated,
		},
		Accepted: layout.Deliverable(consolidate.IntacctExport),
		Artifacts: map[string]string{
			consolidate.LIDACReport:       layout.Deliverable(consolidate.LIDACReport),
			consolidate.ZIPAccumulation:   layout.Deliverable(consolidate.ZIPAccumulation),
			consolidate.ExceptionsSummary: layout.Deliverable(consolidate.ExceptionsSummary),
		},
	}, "step7", "7", "consolidate", "consolidation", "reports")

	return reg, nil
}

func thresholdsFromConfig(c config.AccumulationConfig) (accumulation.Thresholds, error) {
	red, err := decimal.NewFromString(c.RedPenal)
	if err != nil {
		return accumulation.Thresholds{}, fmt.Errorf("%w: accumulation.red_penal: %w", domain.ErrConfigInvalid, err)
	}
	yellow, err := decimal.NewFromString(c.YellowPenal)
	if err != nil {
		return accumulation.Thresholds{}, fmt.Errorf("%w: accumulation.yellow_penal: %w", domain.ErrConfigInvalid, err)
	}
	return accumulation.Thresholds{
		RedCount:    c.RedCount,
		RedPenal:    red,
		YellowCount: c.YellowCount,
		YellowPenal: yellow,
	}, nil
}
