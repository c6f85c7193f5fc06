package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "SMOKE_ETL_CONFIG"

// Inputs holds the paths of the four raw source files.
type Inputs struct {
	DailyExposure    string `yaml:"daily_exposure"`    // sparse county-day smoke PM2.5 CSV
	CountyBoundaries string `yaml:"county_boundaries"` // county boundary GeoJSON
	AsthmaRates      string `yaml:"asthma_rates"`      // monthly asthma rate CSV
	Facilities       string `yaml:"facilities"`        // health facility address CSV
}

// TargetState selects the state the pipeline analyzes and the county count
// the post-filter validation asserts.
type TargetState struct {
	Name             string `yaml:"name"`
	FIPS             string `yaml:"fips"` // 2-digit state FIPS, e.g. "08"
	ExpectedCounties int    `yaml:"expected_counties"`
}

// Model holds the Poisson IRLS settings shared by the three fits.
type Model struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

// Report configures the comparison-table rendering.
type Report struct {
	// OmitGOF lists goodness-of-fit rows excluded from the comparison table.
	OmitGOF []string `yaml:"omit_gof"`
}

// Config holds all pipeline settings, populated from the YAML config file.
type Config struct {
	Inputs          Inputs      `yaml:"inputs"`
	OutputDir       string      `yaml:"output_dir"`
	Target          TargetState `yaml:"target_state"`
	SeasonMonths    []int       `yaml:"season_months"`
	AsthmaStartYear int         `yaml:"asthma_start_year"`
	LogLevel        string      `yaml:"log_level"`
	LogFormat       string      `yaml:"log_format"` // "json" or "text"
	MetricsTextfile string      `yaml:"metrics_textfile"`
	SQLitePath      string      `yaml:"sqlite_path"`
	Model           Model       `yaml:"model"`
	Report          Report      `yaml:"report"`
}

// DefaultPath resolves the config file location: the SMOKE_ETL_CONFIG
// environment variable when set, otherwise config.yaml in the working dir.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return "config.yaml"
}

// Load reads and validates the YAML config at path, applying defaults for
// unset optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		OutputDir:       "out",
		SeasonMonths:    []int{5, 6, 7, 8, 9},
		AsthmaStartYear: 2011,
		LogLevel:        "info",
		LogFormat:       "json",
		Model:           Model{MaxIterations: 50, Tolerance: 1e-8},
		Report: Report{
			OmitGOF: []string{"deviance", "aic", "bic", "log_likelihood"},
		},
	}
}

func (c *Config) validate() error {
	if c.Inputs.DailyExposure == "" {
		return errors.New("inputs.daily_exposure is required")
	}
	if c.Inputs.CountyBoundaries == "" {
		return errors.New("inputs.county_boundaries is required")
	}
	if c.Inputs.AsthmaRates == "" {
		return errors.New("inputs.asthma_rates is required")
	}
	if c.Inputs.Facilities == "" {
		return errors.New("inputs.facilities is required")
	}
	if c.Target.FIPS == "" {
		return errors.New("target_state.fips is required")
	}
	if c.Target.ExpectedCounties <= 0 {
		return errors.New("target_state.expected_counties must be positive")
	}
	if len(c.SeasonMonths) == 0 {
		return errors.New("season_months must not be empty")
	}
	for _, m := range c.SeasonMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("season_months contains invalid month %d", m)
		}
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	if c.Model.MaxIterations <= 0 {
		return errors.New("model.max_iterations must be positive")
	}
	if c.Model.Tolerance <= 0 {
		return errors.New("model.tolerance must be positive")
	}
	return nil
}

// OutputPath joins name onto the configured output directory.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}

// SeasonSet returns the season months as a membership set.
func (c *Config) SeasonSet() map[int]bool {
	set := make(map[int]bool, len(c.SeasonMonths))
	for _, m := range c.SeasonMonths {
		set[m] = true
	}
	return set
}
