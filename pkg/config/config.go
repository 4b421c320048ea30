// Package config provides configuration structures and loading logic for the
// pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the global configuration for a pipeline run.
type Config struct {
	Paths        PathsConfig        `yaml:"paths"`
	Run          RunConfig          `yaml:"run"`
	Geo          GeoConfig          `yaml:"geo"`
	Accumulation AccumulationConfig `yaml:"accumulation"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Logging      LoggingConfig      `yaml:"logging"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Catalog      CatalogConfig      `yaml:"catalog"`
}

// PathsConfig locates inputs and reference data relative to Root.
type PathsConfig struct {
	Root            string `yaml:"root" validate:"required"`
	RawDir          string `yaml:"raw_dir" validate:"required"`
	CrosswalkFile   string `yaml:"crosswalk_file" validate:"required"`
	EligibilityFile string `yaml:"eligibility_file" validate:"required"`
	// OutputRoot is the directory the output_stepN folders are created in.
	OutputRoot string `yaml:"output_root" validate:"required"`
	// InputEncoding is the text encoding of carrier source files.
	InputEncoding string `yaml:"input_encoding" validate:"omitempty,encoding"`
}

// RunConfig holds run-scoped settings.
type RunConfig struct {
	// AsOfDate overrides the reporting date (YYYY-MM-DD); empty means the
	// run date.
	AsOfDate string `yaml:"as_of_date" validate:"omitempty,datetime=2006-01-02"`
	IDWidth  int    `yaml:"id_width" validate:"gte=1,lte=12"`
}

// GeoConfig holds geographic resolution settings.
type GeoConfig struct {
	MembershipCheck bool `yaml:"membership_check"`
}

// AccumulationConfig holds the tier ladder thresholds.
type AccumulationConfig struct {
	RedCount    int    `yaml:"red_count" validate:"gte=1"`
	RedPenal    string `yaml:"red_penal" validate:"required,nonnegative_amount"`
	YellowCount int    `yaml:"yellow_count" validate:"gte=1,ltefield=RedCount"`
	YellowPenal string `yaml:"yellow_penal" validate:"required,nonnegative_amount"`
}

// LedgerConfig holds journal posting settings.
type LedgerConfig struct {
	PayableAccount string `yaml:"payable_account" validate:"required"`
	RevenueAccount string `yaml:"revenue_account" validate:"required"`
	ExpenseAccount string `yaml:"expense_account" validate:"required"`
	Currency       string `yaml:"currency" validate:"required,len=3,uppercase"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Pretty bool   `yaml:"pretty"`
}

// TelemetryConfig holds configuration for OpenTelemetry and metric export.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name" validate:"required"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	// MetricsFile, when set, receives a Prometheus text-format snapshot of
	// the run's metrics for a node_exporter textfile collector.
	MetricsFile string `yaml:"metrics_file"`
}

// CatalogConfig holds run catalog settings.
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is supplied. Paths are
// the fixed well-known locations relative to the working directory.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:            ".",
			RawDir:          "data/raw",
			CrosswalkFile:   "config/hud_zip_tract_crosswalk.csv",
			EligibilityFile: "config/external_data/cejst_v2_communities.csv",
			OutputRoot:      ".",
		},
		Run: RunConfig{IDWidth: 6},
		Geo: GeoConfig{MembershipCheck: true},
		Accumulation: AccumulationConfig{
			RedCount:    4,
			RedPenal:    "5000000",
			YellowCount: 2,
			YellowPenal: "2000000",
		},
		Ledger: LedgerConfig{
			PayableAccount: "2300 - MGA Payable",
			RevenueAccount: "4000 - Written Premium Revenue",
			ExpenseAccount: "5200 - Commission Expense",
			Currency:       "USD",
		},
		Logging:   LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{ServiceName: "bordereaux"},
		Catalog:   CatalogConfig{Path: "output_catalog/runs.db"},
	}
}

// Load reads configuration from a file and applies environment variable
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("BORDEREAUX_ROOT"); val != "" {
		cfg.Paths.Root = val
	}
	if val := os.Getenv("BORDEREAUX_RAW_DIR"); val != "" {
		cfg.Paths.RawDir = val
	}
	if val := os.Getenv("BORDEREAUX_CROSSWALK_FILE"); val != "" {
		cfg.Paths.CrosswalkFile = val
	}
	if val := os.Getenv("BORDEREAUX_ELIGIBILITY_FILE"); val != "" {
		cfg.Paths.EligibilityFile = val
	}
	if val := os.Getenv("BORDEREAUX_OUTPUT_ROOT"); val != "" {
		cfg.Paths.OutputRoot = val
	}
	if val := os.Getenv("BORDEREAUX_INPUT_ENCODING"); val != "" {
		cfg.Paths.InputEncoding = val
	}

	if val := os.Getenv("BORDEREAUX_AS_OF_DATE"); val != "" {
		cfg.Run.AsOfDate = val
	}
	if val := os.Getenv("BORDEREAUX_MEMBERSHIP_CHECK"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Geo.MembershipCheck = b
		}
	}

	if val := os.Getenv("BORDEREAUX_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("BORDEREAUX_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}

	if val := os.Getenv("BORDEREAUX_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("BORDEREAUX_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
	if val := os.Getenv("BORDEREAUX_METRICS_FILE"); val != "" {
		cfg.Telemetry.MetricsFile = val
	}

	if val := os.Getenv("BORDEREAUX_CATALOG_ENABLED"); val == "true" {
		cfg.Catalog.Enabled = true
	}
	if val := os.Getenv("BORDEREAUX_CATALOG_PATH"); val != "" {
		cfg.Catalog.Path = val
	}
}

// AsOf returns the configured as-of date, or the zero time when unset.
func (c *Config) AsOf() time.Time {
	if c.Run.AsOfDate == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", c.Run.AsOfDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
