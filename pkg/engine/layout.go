package engine

import (
	"path"

	"github.com/polisai/bordereaux/pkg/config"
)

// Well-known artifact file names, relative to their stage directory.
const (
	NormalizedFile         = "silver_project_records.csv"
	NormalizedExceptions   = "exceptions_step2_extraction.csv"
	LocationFile           = "silver_location_enriched.csv"
	LocationExceptions     = "exceptions_step3_zip_issues.csv"
	ClassifiedFile         = "gold_lidac_classified.csv"
	ClassifiedExceptions   = "exceptions_step4_missing_cejst_match.csv"
	AccumulationFile       = "gold_zip_accumulation_flags.csv"
	AccumulationExceptions = "exceptions_step5_missing_zip.csv"
	JournalFile            = "gold_journal_entries_for_intacct.csv"
	JournalExceptions      = "exceptions_step6_journal_mapping.csv"
)

// Layout resolves where each stage reads and writes. All paths are
// slash-separated and relative to the artifact store root.
type Layout struct {
	RawDir      string
	Crosswalk   string
	Eligibility string
	OutputRoot  string
}

// LayoutFromConfig derives the layout from the paths section.
func LayoutFromConfig(p config.PathsConfig) Layout {
	return Layout{
		RawDir:      p.RawDir,
		Crosswalk:   p.CrosswalkFile,
		Eligibility: p.EligibilityFile,
		OutputRoot:  p.OutputRoot,
	}
}

// Output joins a stage directory and file name under the output root.
func (l Layout) Output(dir, file string) string {
	return path.Join(l.OutputRoot, dir, file)
}

// Deliverable is the path of a consolidation deliverable.
func (l Layout) Deliverable(name string) string {
	return l.Output("output_step7", name+".csv")
}
