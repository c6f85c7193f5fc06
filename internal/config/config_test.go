package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
inputs:
  daily_exposure: data/smoke_pm25_daily.csv
  county_boundaries: data/counties.geojson
  asthma_rates: data/asthma_monthly.csv
  facilities: data/health_facilities.csv
target_state:
  name: Colorado
  fips: "08"
  expected_counties: 64
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, cfg.SeasonMonths)
	assert.Equal(t, 2011, cfg.AsthmaStartYear)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 50, cfg.Model.MaxIterations)
	assert.InEpsilon(t, 1e-8, cfg.Model.Tolerance, 1e-12)
	assert.Contains(t, cfg.Report.OmitGOF, "deviance")

	assert.Equal(t, "Colorado", cfg.Target.Name)
	assert.Equal(t, "08", cfg.Target.FIPS)
	assert.Equal(t, 64, cfg.Target.ExpectedCounties)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
output_dir: /tmp/analysis
season_months: [6, 7, 8]
log_format: text
model:
  max_iterations: 100
  tolerance: 1e-6
`))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/analysis", cfg.OutputDir)
	assert.Equal(t, []int{6, 7, 8}, cfg.SeasonMonths)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 100, cfg.Model.MaxIterations)
}

func TestLoad_Validation(t *testing.T) {
	const inputsYAML = `
inputs:
  daily_exposure: data/smoke_pm25_daily.csv
  county_boundaries: data/counties.geojson
  asthma_rates: data/asthma_monthly.csv
  facilities: data/health_facilities.csv
`

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing exposure input",
			body:    "inputs: {county_boundaries: a, asthma_rates: b, facilities: c}\ntarget_state: {fips: \"08\", expected_counties: 64}",
			wantErr: "inputs.daily_exposure",
		},
		{
			name:    "missing state fips",
			body:    inputsYAML + "target_state: {name: Colorado, expected_counties: 64}",
			wantErr: "target_state.fips",
		},
		{
			name:    "bad season month",
			body:    minimalYAML + "season_months: [5, 13]",
			wantErr: "invalid month 13",
		},
		{
			name:    "bad log format",
			body:    minimalYAML + "log_format: xml",
			wantErr: "log_format",
		},
		{
			name:    "zero expected counties",
			body:    inputsYAML + "target_state: {fips: \"08\", expected_counties: 0}",
			wantErr: "expected_counties",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, "config.yaml", DefaultPath())

	t.Setenv(EnvConfigPath, "/etc/smoke/config.yaml")
	assert.Equal(t, "/etc/smoke/config.yaml", DefaultPath())
}

func TestSeasonSet(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	set := cfg.SeasonSet()
	assert.True(t, set[5])
	assert.True(t, set[9])
	assert.False(t, set[4])
	assert.False(t, set[10])
}
