// Package accumulation rolls accepted records up per postal code and flags
// geographic risk concentration.
package accumulation

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/money"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

// ReasonZIPInvalid marks a record excluded from aggregation.
const ReasonZIPInvalid = "ZIP_MISSING_OR_INVALID"

var zipPattern = regexp.MustCompile(`^\d{5}$`)

var requiredColumns = []string{schema.ZipCode, schema.CarrierID, schema.GrossPremium, schema.PenalAmount}

// Config holds accumulation settings.
type Config struct {
	// Thresholds overrides DefaultThresholds when non-nil.
	Thresholds *Thresholds
	Logger     *slog.Logger
}

// Stage is the accumulation aggregation stage.
type Stage struct {
	thresholds Thresholds
	logger     *slog.Logger
}

// New creates an accumulation stage.
func New(cfg Config) *Stage {
	s := &Stage{thresholds: DefaultThresholds, logger: cfg.Logger}
	if cfg.Thresholds != nil {
		s.thresholds = *cfg.Thresholds
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name implements runtime.Stage.
func (s *Stage) Name() string { return domain.StageAccumulation }

// bucket is the rollup for one postal code.
type bucket struct {
	ZIP        string
	Projects   int
	Carriers   map[string]struct{}
	GrossTotal decimal.Decimal
	PenalTotal decimal.Decimal
}

// Execute implements runtime.Stage. The accepted table holds one row per
// postal code; AcceptedKeys lists the project ids that were aggregated.
func (s *Stage) Execute(ctx context.Context, in runtime.Input) (runtime.Result, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Result{}, err
	}
	src := in.Primary()
	if src == nil {
		return runtime.Result{}, domain.MissingInput(s.Name(), schema.LIDACClassified.Name)
	}
	if missing := src.MissingColumns(requiredColumns...); len(missing) > 0 {
		return runtime.Result{}, domain.MissingColumns(s.Name(), src.Name, missing)
	}
	useFlag := src.Has(schema.ZipValidFlag)

	buckets := map[string]*bucket{}
	exceptions := table.New(schema.AccumulationExceptions.Name, src.Columns...)
	keys := make([]string, 0, src.Len())
	for _, r := range src.Rows {
		zip := strings.TrimSpace(r[schema.ZipCode])
		if !validZIP(zip, r, useFlag) {
			row := r.Clone()
			row[schema.AccumulationErrorReason] = ReasonZIPInvalid
			exceptions.Rows = append(exceptions.Rows, row)
			continue
		}
		b, ok := buckets[zip]
		if !ok {
			b = &bucket{ZIP: zip, Carriers: map[string]struct{}{}}
			buckets[zip] = b
		}
		b.Projects++
		if c := strings.TrimSpace(r[schema.CarrierID]); c != "" {
			b.Carriers[c] = struct{}{}
		}
		b.GrossTotal = b.GrossTotal.Add(money.ParseLenient(r[schema.GrossPremium]))
		b.PenalTotal = b.PenalTotal.Add(money.ParseLenient(r[schema.PenalAmount]))
		keys = append(keys, r[schema.ProjectID])
	}

	accepted := s.bucketTable(buckets)
	s.logger.Info("accumulation complete",
		"stage", s.Name(),
		"run_id", in.Run.ID,
		"rows", src.Len(),
		"aggregated", len(keys),
		"buckets", accepted.Len(),
		"exceptions", exceptions.Len(),
	)
	if len(keys) == 0 {
		s.logger.Warn("no valid rows for accumulation", "stage", s.Name())
	}

	return runtime.Result{
		Accepted:     table.Enforce(accepted, schema.AccumulationBucket),
		Exceptions:   table.Enforce(exceptions, schema.AccumulationExceptions),
		AcceptedKeys: keys,
	}, nil
}

func (s *Stage) bucketTable(buckets map[string]*bucket) *table.Table {
	zips := make([]string, 0, len(buckets))
	for z := range buckets {
		zips = append(zips, z)
	}
	sort.Strings(zips)

	out := table.New(schema.AccumulationBucket.Name, schema.AccumulationBucket.Columns()...)
	for _, z := range zips {
		b := buckets[z]
		tier := s.thresholds.Classify(b.Projects, b.PenalTotal)
		out.Rows = append(out.Rows, table.Row{
			schema.ZipCode:           b.ZIP,
			schema.ProjectCount:      strconv.Itoa(b.Projects),
			schema.CarriersInvolved:  strconv.Itoa(len(b.Carriers)),
			schema.TotalGrossPremium: money.Format(b.GrossTotal),
			schema.TotalPenalAmount:  money.Format(b.PenalTotal),
			schema.AccumulationFlag:  string(tier),
			schema.AccumulationNote:  Note(tier),
		})
	}
	return out
}

func validZIP(zip string, r table.Row, useFlag bool) bool {
	if zip == table.Missing {
		return false
	}
	if useFlag {
		switch strings.ToLower(strings.TrimSpace(r[schema.ZipValidFlag])) {
		case "true", "1", "yes":
			return true
		default:
			return false
		}
	}
	return zipPattern.MatchString(zip)
}
