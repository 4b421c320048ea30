// Package normalize maps heterogeneous carrier extracts onto the canonical
// project record and attaches lineage.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/money"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

// FlagExpirationNotAfterEffective marks a record whose expiration date does
// not fall after its effective date.
const FlagExpirationNotAfterEffective = "expiration_not_after_effective"

// DefaultIDWidth is the zero-padded width of the project sequence number.
const DefaultIDWidth = 6

// Config holds normalization settings.
type Config struct {
	// Aliases overrides DefaultAliases when non-nil.
	Aliases map[string][]string
	IDWidth int
	Logger  *slog.Logger
}

// Stage normalizes one table per source file into SilverProject rows.
type Stage struct {
	aliases map[string][]string
	idWidth int
	logger  *slog.Logger
}

// New creates a normalization stage.
func New(cfg Config) *Stage {
	s := &Stage{aliases: cfg.Aliases, idWidth: cfg.IDWidth, logger: cfg.Logger}
	if s.aliases == nil {
		s.aliases = DefaultAliases
	}
	if s.idWidth <= 0 {
		s.idWidth = DefaultIDWidth
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name implements runtime.Stage.
func (s *Stage) Name() string { return domain.StageNormalize }

// Execute implements runtime.Stage. Every input row is accepted; the
// exception table is always empty.
func (s *Stage) Execute(ctx context.Context, in runtime.Input) (runtime.Result, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Result{}, err
	}
	if len(in.Tables) == 0 {
		return runtime.Result{}, &domain.StructuralError{
			Stage:   s.Name(),
			Code:    domain.CodeInputNotFound,
			Message: "no carrier source files",
			Err:     domain.ErrInputNotFound,
		}
	}

	out := table.New(schema.SilverProject.Name, schema.SilverProject.Columns()...)
	ingested := in.Run.StartedAt.UTC().Format(table.TimestampLayout)
	asOf := in.Run.AsOfDate.Format(table.DateLayout)
	seq := 0

	for _, src := range in.Tables {
		carrier := CarrierID(src.Name)
		mapping := table.ResolveAliases(src, s.aliases)
		s.logger.Info("normalizing source",
			"stage", s.Name(),
			"run_id", in.Run.ID,
			"source_file", src.Name,
			"carrier_id", carrier,
			"rows", src.Len(),
			"mapped_fields", len(mapping),
		)
		if unmapped := unmappedHeaders(src, mapping); len(unmapped) > 0 {
			s.logger.Debug("ignoring unmapped headers", "source_file", src.Name, "headers", unmapped)
		}

		for i, raw := range src.Rows {
			seq++
			row := s.canonicalRow(raw, mapping)
			row[schema.ProjectID] = fmt.Sprintf("%s_%0*d", carrier, s.idWidth, seq)
			row[schema.CarrierID] = carrier
			row[schema.SourceFile] = src.Name
			row[schema.SourceRowNumber] = strconv.Itoa(i + 2)
			row[schema.IngestionTimestamp] = ingested
			row[schema.AsOfDate] = asOf
			row[schema.QualityFlags] = qualityFlags(row)
			out.Rows = append(out.Rows, row)
		}
	}

	return runtime.Result{
		Accepted:   table.Enforce(out, schema.SilverProject),
		Exceptions: table.New(schema.NormalizationExceptions.Name, schema.NormalizationExceptions.Columns()...),
	}, nil
}

func (s *Stage) canonicalRow(raw table.Row, mapping map[string]string) table.Row {
	row := make(table.Row, len(s.aliases)+8)
	for field := range s.aliases {
		col, ok := mapping[field]
		if !ok {
			row[field] = table.Missing
			continue
		}
		v := raw[col]
		switch {
		case numericFields[field]:
			row[field] = money.Normalize(v)
		case dateFields[field]:
			row[field] = table.Coerce(table.Date, v)
		default:
			row[field] = strings.TrimSpace(v)
		}
	}
	return row
}

// CarrierID derives the carrier identifier from a source file name: the
// base name without extension, up to the first underscore.
func CarrierID(file string) string {
	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(name, "_"); i >= 0 {
		return name[:i]
	}
	return name
}

func qualityFlags(row table.Row) string {
	eff, okEff := table.ParseDate(row[schema.EffectiveDate])
	exp, okExp := table.ParseDate(row[schema.ExpirationDate])
	if okEff && okExp && !exp.After(eff) {
		return FlagExpirationNotAfterEffective
	}
	return table.Missing
}

func unmappedHeaders(src *table.Table, mapping map[string]string) []string {
	used := make(map[string]bool, len(mapping))
	for _, col := range mapping {
		used[col] = true
	}
	var out []string
	for _, c := range src.Columns {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}
