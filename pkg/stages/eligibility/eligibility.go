// Package eligibility classifies resolved records as belonging to a
// disadvantaged community by joining their census tract to a tract-level
// eligibility dataset.
package eligibility

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

// DatasetReference is the reference key of the eligibility dataset.
const DatasetReference = "cejst"

// Exception reasons.
const (
	ReasonTractInvalid = "TRACT_FIPS_INVALID"
	ReasonNoMatch      = "NO_CEJST_TRACT_MATCH"
)

// Verdict values written to accepted rows.
const (
	EligibleYes            = "Yes"
	EligibleNo             = "No"
	ReasonDisadvantaged    = "CEJST_disadvantaged"
	ReasonNotDisadvantaged = "Not_disadvantaged"
)

// Config holds eligibility settings.
type Config struct {
	Logger *slog.Logger
}

// Stage is the eligibility classification stage.
type Stage struct {
	logger *slog.Logger
}

// New creates an eligibility classification stage.
func New(cfg Config) *Stage {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{logger: logger}
}

// Name implements runtime.Stage.
func (s *Stage) Name() string { return domain.StageEligibility }

// Execute implements runtime.Stage.
func (s *Stage) Execute(ctx context.Context, in runtime.Input) (runtime.Result, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Result{}, err
	}
	src := in.Primary()
	if src == nil {
		return runtime.Result{}, domain.MissingInput(s.Name(), schema.LocationEnriched.Name)
	}
	if missing := src.MissingColumns(schema.TractFIPS); len(missing) > 0 {
		return runtime.Result{}, domain.MissingColumns(s.Name(), src.Name, missing)
	}
	ref, ok := in.Reference(DatasetReference)
	if !ok {
		return runtime.Result{}, domain.MissingInput(s.Name(), DatasetReference)
	}
	lookup, missing := BuildLookup(ref)
	if len(missing) > 0 {
		return runtime.Result{}, domain.UnreadableReference(s.Name(), ref.Name,
			fmt.Errorf("%w: %v", domain.ErrColumnMissing, missing))
	}
	s.logger.Info("loaded eligibility dataset",
		"stage", s.Name(),
		"run_id", in.Run.ID,
		"tracts", lookup.Len(),
		"invalid_tracts", lookup.Invalid(),
	)
	if lookup.Conflicts() > 0 {
		s.logger.Warn("eligibility dataset has conflicting duplicate tracts; first occurrence kept",
			"stage", s.Name(), "conflicts", lookup.Conflicts())
	}

	accepted := table.New(schema.LIDACClassified.Name, src.Columns...)
	exceptions := table.New(schema.EligibilityExceptions.Name, src.Columns...)
	for _, r := range src.Rows {
		row := r.Clone()
		tract := NormalizeTract(row[schema.TractFIPS])
		if tract == table.Missing {
			row[schema.LIDACErrorReason] = ReasonTractInvalid
			exceptions.Rows = append(exceptions.Rows, row)
			continue
		}
		flag, known := lookup.Get(tract)
		if !known {
			row[schema.LIDACErrorReason] = ReasonNoMatch
			exceptions.Rows = append(exceptions.Rows, row)
			continue
		}
		row[schema.TractFIPS] = tract
		row[schema.CEJSTDisadvantaged] = table.FormatBool(flag)
		if flag {
			row[schema.LIDACEligible] = EligibleYes
			row[schema.LIDACReason] = ReasonDisadvantaged
		} else {
			row[schema.LIDACEligible] = EligibleNo
			row[schema.LIDACReason] = ReasonNotDisadvantaged
		}
		accepted.Rows = append(accepted.Rows, row)
	}

	s.logger.Info("eligibility classification complete",
		"stage", s.Name(),
		"run_id", in.Run.ID,
		"rows", src.Len(),
		"accepted", accepted.Len(),
		"exceptions", exceptions.Len(),
	)

	return runtime.Result{
		Accepted:   table.Enforce(accepted, schema.LIDACClassified),
		Exceptions: table.Enforce(exceptions, schema.EligibilityExceptions),
	}, nil
}
