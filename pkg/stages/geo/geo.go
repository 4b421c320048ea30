// Package geo resolves a record's free-text address to a postal code and the
// census tract that best represents it.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

// CrosswalkReference is the reference key under which the ZIP to tract
// crosswalk is supplied.
const CrosswalkReference = "crosswalk"

// Diagnostic reasons in priority order. Only the first applicable one is
// recorded.
const (
	ReasonZIPMissing  = "ZIP missing from address"
	ReasonZIPFormat   = "ZIP not 5 digits"
	ReasonZIPNotInHUD = "ZIP not found in HUD crosswalk"
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Config holds geographic resolution settings.
type Config struct {
	// SkipMembership disables routing of postal codes absent from the
	// crosswalk to exceptions. Tract enrichment still runs.
	SkipMembership bool
	Logger         *slog.Logger
}

// Stage is the geographic resolution stage.
type Stage struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a geographic resolution stage.
func New(cfg Config) *Stage {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{cfg: cfg, logger: logger}
}

// Name implements runtime.Stage.
func (s *Stage) Name() string { return domain.StageGeo }

// ExtractZIP keeps the digits of addr and returns the last five, or "" when
// fewer than five digits are present.
func ExtractZIP(addr string) string {
	d := digits(addr)
	if len(d) < 5 {
		return table.Missing
	}
	return leftPad(d[len(d)-5:], 5)
}

// ValidZIP reports whether zip is exactly five ASCII digits.
func ValidZIP(zip string) bool {
	return zipPattern.MatchString(zip)
}

// Execute implements runtime.Stage.
func (s *Stage) Execute(ctx context.Context, in runtime.Input) (runtime.Result, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Result{}, err
	}
	src := in.Primary()
	if src == nil {
		return runtime.Result{}, domain.MissingInput(s.Name(), schema.SilverProject.Name)
	}
	if missing := src.MissingColumns(schema.PrincipalAddress); len(missing) > 0 {
		return runtime.Result{}, domain.MissingColumns(s.Name(), src.Name, missing)
	}

	cw, err := s.loadCrosswalk(in)
	if err != nil {
		return runtime.Result{}, err
	}
	checkMembership := cw != nil && !s.cfg.SkipMembership

	accepted := table.New(schema.LocationEnriched.Name, src.Columns...)
	exceptions := table.New(schema.GeoExceptions.Name, src.Columns...)
	for _, r := range src.Rows {
		row := r.Clone()
		resolve(row, ExtractZIP(row[schema.PrincipalAddress]), cw, checkMembership)
		if row[schema.ZipValidFlag] == table.FormatBool(true) {
			accepted.Rows = append(accepted.Rows, row)
		} else {
			exceptions.Rows = append(exceptions.Rows, row)
		}
	}

	s.logger.Info("geographic resolution complete",
		"stage", s.Name(),
		"run_id", in.Run.ID,
		"rows", src.Len(),
		"accepted", accepted.Len(),
		"exceptions", exceptions.Len(),
		"membership_check", checkMembership,
	)

	return runtime.Result{
		Accepted:   table.Enforce(accepted, schema.LocationEnriched),
		Exceptions: table.Enforce(exceptions, schema.GeoExceptions),
	}, nil
}

func (s *Stage) loadCrosswalk(in runtime.Input) (*Crosswalk, error) {
	ref, ok := in.Reference(CrosswalkReference)
	if !ok {
		s.logger.Warn("crosswalk not available; skipping membership validation and tract enrichment",
			"stage", s.Name(), "run_id", in.Run.ID)
		return nil, nil
	}
	entries, missing := ParseCrosswalk(ref)
	if len(missing) > 0 {
		return nil, domain.UnreadableReference(s.Name(), ref.Name,
			fmt.Errorf("%w: %v", domain.ErrColumnMissing, missing))
	}
	cw := BestMatch(entries)
	s.logger.Info("loaded crosswalk",
		"stage", s.Name(), "entries", len(entries), "zip_universe", cw.Len())
	return cw, nil
}

// resolve fills the location columns of row for an extracted zip. The first
// failing check names the reason: missing, then format, then membership.
func resolve(row table.Row, zip string, cw *Crosswalk, checkMembership bool) {
	validFormat := zip != table.Missing && ValidZIP(zip)

	row[schema.ZipCode] = zip
	row[schema.ZipValidFormat] = table.FormatBool(validFormat)
	row[schema.ZipInHUD] = table.Missing
	if checkMembership {
		row[schema.ZipInHUD] = table.FormatBool(cw.Contains(zip))
	}

	reason := table.Missing
	switch {
	case zip == table.Missing:
		reason = ReasonZIPMissing
	case !validFormat:
		reason = ReasonZIPFormat
	case checkMembership && !cw.Contains(zip):
		reason = ReasonZIPNotInHUD
	}
	row[schema.ZipErrorReason] = reason
	row[schema.ZipValidFlag] = table.FormatBool(reason == table.Missing)

	for _, c := range []string{schema.StateFIPS, schema.CountyFIPS, schema.TractFIPS, schema.TractMatchRatio, schema.TractMatchFlag} {
		row[c] = table.Missing
	}
	if cw == nil {
		return
	}
	tract, ok := cw.Lookup(zip)
	row[schema.TractMatchFlag] = table.FormatBool(ok)
	if ok {
		row[schema.StateFIPS] = tract.StateFIPS
		row[schema.CountyFIPS] = tract.County
		row[schema.TractFIPS] = tract.TractFIPS
		row[schema.TractMatchRatio] = tract.Ratio.String()
	}
}
