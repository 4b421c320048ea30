// Package ledger expands classified records into double-entry journal lines
// for the general ledger export.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/money"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

// ReasonNoPostableAmounts marks a record whose amounts are all zero.
const ReasonNoPostableAmounts = "NO_POSTABLE_AMOUNTS"

// Accounts names the general ledger accounts lines post to.
type Accounts struct {
	Payable string
	Revenue string
	Expense string
}

// DefaultAccounts are the placeholder chart-of-accounts entries.
var DefaultAccounts = Accounts{
	Payable: "2300 - MGA Payable",
	Revenue: "4000 - Written Premium Revenue",
	Expense: "5200 - Commission Expense",
}

// DefaultCurrency is used when none is configured.
const DefaultCurrency = "USD"

// dimensions are copied from the record onto every line.
var dimensions = []string{
	schema.EffectiveDate, schema.AsOfDate, schema.ExpirationDate,
	schema.ProjectID, schema.CarrierID, schema.ProductName, schema.PremiumState,
	schema.PrincipalName, schema.PrincipalAddress, schema.ZipCode,
	schema.StateFIPS, schema.CountyFIPS, schema.TractFIPS,
	schema.LIDACEligible, schema.LIDACReason, schema.SourceFile, schema.SourceRowNumber,
	schema.BrokerName, schema.BrokerState, schema.ObligeeName, schema.ObligeeState,
	schema.TractMatchRatio, schema.TractMatchFlag,
}

// Config holds ledger settings. Zero values fall back to the defaults.
type Config struct {
	Accounts Accounts
	Currency string
	IDWidth  int
	Logger   *slog.Logger
}

// Stage is the ledger derivation stage.
type Stage struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a ledger stage.
func New(cfg Config) *Stage {
	if cfg.Accounts.Payable == "" {
		cfg.Accounts.Payable = DefaultAccounts.Payable
	}
	if cfg.Accounts.Revenue == "" {
		cfg.Accounts.Revenue = DefaultAccounts.Revenue
	}
	if cfg.Accounts.Expense == "" {
		cfg.Accounts.Expense = DefaultAccounts.Expense
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.IDWidth <= 0 {
		cfg.IDWidth = 6
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{cfg: cfg, logger: logger}
}

// Name implements runtime.Stage.
func (s *Stage) Name() string { return domain.StageLedger }

// Line is one journal line before it is rendered into a row.
type Line struct {
	Number      int
	Direction   domain.Direction
	Account     string
	Amount      decimal.Decimal
	Description string
}

// Lines derives the journal lines for one record: the net premium debit and
// gross premium credit always, and the commission debit only when non-zero.
// It returns nil when every amount is zero.
func (s *Stage) Lines(r table.Row) []Line {
	gross := money.ParseLenient(r[schema.GrossPremium])
	net := money.ParseLenient(r[schema.NetPremium])
	comm := money.ParseLenient(r[schema.CommissionAmount])
	if gross.IsZero() && net.IsZero() && comm.IsZero() {
		return nil
	}
	product := r[schema.ProductName]
	lines := []Line{
		{Number: 1, Direction: domain.Debit, Account: s.cfg.Accounts.Payable, Amount: net, Description: "Net Premium - " + product},
		{Number: 2, Direction: domain.Credit, Account: s.cfg.Accounts.Revenue, Amount: gross, Description: "Gross Premium - " + product},
	}
	if !comm.IsZero() {
		lines = append(lines, Line{Number: 3, Direction: domain.Debit, Account: s.cfg.Accounts.Expense, Amount: comm, Description: "Commission - " + product})
	}
	return lines
}

// Execute implements runtime.Stage. AcceptedKeys lists the project ids that
// produced lines.
func (s *Stage) Execute(ctx context.Context, in runtime.Input) (runtime.Result, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Result{}, err
	}
	src := in.Primary()
	if src == nil {
		return runtime.Result{}, domain.MissingInput(s.Name(), schema.LIDACClassified.Name)
	}
	if missing := src.MissingColumns(schema.GrossPremium, schema.NetPremium); len(missing) > 0 {
		return runtime.Result{}, domain.MissingColumns(s.Name(), src.Name, missing)
	}

	out := table.New(schema.JournalLine.Name, schema.JournalLine.Columns()...)
	exceptions := table.New(schema.LedgerExceptions.Name, src.Columns...)
	keys := make([]string, 0, src.Len())
	entries, unbalanced := 0, 0
	for _, r := range src.Rows {
		lines := s.Lines(r)
		if lines == nil {
			row := r.Clone()
			row[schema.LedgerErrorReason] = ReasonNoPostableAmounts
			exceptions.Rows = append(exceptions.Rows, row)
			continue
		}
		entries++
		entryID := fmt.Sprintf("JE_%0*d", s.cfg.IDWidth, entries)
		if !balanced(lines) {
			unbalanced++
		}
		for _, l := range lines {
			out.Rows = append(out.Rows, s.render(entryID, l, r))
		}
		keys = append(keys, r[schema.ProjectID])
	}

	s.logger.Info("ledger derivation complete",
		"stage", s.Name(),
		"run_id", in.Run.ID,
		"rows", src.Len(),
		"entries", entries,
		"lines", out.Len(),
		"exceptions", exceptions.Len(),
	)
	if unbalanced > 0 {
		s.logger.Warn("journal entries with debits not equal to credits", "stage", s.Name(), "entries", unbalanced)
	}

	return runtime.Result{
		Accepted:     table.Enforce(out, schema.JournalLine),
		Exceptions:   table.Enforce(exceptions, schema.LedgerExceptions),
		AcceptedKeys: keys,
	}, nil
}

func (s *Stage) render(entryID string, l Line, r table.Row) table.Row {
	row := make(table.Row, len(schema.JournalLine.Fields))
	for _, d := range dimensions {
		row[d] = r[d]
	}
	row[schema.JournalEntryID] = entryID
	row[schema.LineNumber] = strconv.Itoa(l.Number)
	row[schema.DrCr] = string(l.Direction)
	row[schema.GLAccount] = l.Account
	row[schema.Amount] = money.Format(l.Amount)
	row[schema.Currency] = s.cfg.Currency
	row[schema.Description] = l.Description
	return row
}

func balanced(lines []Line) bool {
	var dr, cr decimal.Decimal
	for _, l := range lines {
		if l.Direction == domain.Debit {
			dr = dr.Add(l.Amount)
		} else {
			cr = cr.Add(l.Amount)
		}
	}
	return dr.Equal(cr)
}
