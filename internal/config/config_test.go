package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `market:
  base_url: "http://marketdata:8080"
universe:
  symbols:
    - symbol: AAPL
    - symbol: MSFT
      shares_held: 200
`

func TestLoad_DefaultsBackfilled(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "config.yaml", minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://marketdata:8080", cfg.Market.BaseURL)
	require.Len(t, cfg.Universe.Symbols, 2)
	assert.Equal(t, 200, cfg.Universe.Symbols[1].SharesHeld)

	// 未出现在文件里的键全部回填默认值。
	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, ":9992", cfg.App.HTTPAddr)
	assert.Equal(t, 10, cfg.Market.HTTPTimeoutSeconds)
	assert.Equal(t, 0.03, cfg.Eligibility.NearLevelPct)
	assert.Equal(t, 200, cfg.Eligibility.Indicator.EMASlow)
	assert.Equal(t, 21, cfg.Selector.MinDTE)
	assert.Equal(t, 45, cfg.Selector.MaxDTE)
	assert.Equal(t, 0.25, cfg.Selector.TargetDelta)
	assert.Equal(t, 0.20, cfg.Scoring.WeightDataQuality)
	assert.Equal(t, 5, cfg.Exposure.MaxOpenPositions)
	assert.True(t, cfg.Exposure.OnePositionPerSym)
	assert.Equal(t, "standard", cfg.ExitPlans.DefaultPlan)
	assert.Equal(t, "15m", cfg.Scheduler.Interval)
	assert.Equal(t, 30, cfg.Scheduler.OffsetSeconds)
	assert.Equal(t, "/data/db/wheelhouse.db", cfg.Store.DBPath)
	assert.Equal(t, 60, cfg.Notify.CooldownMinutes)
}

func TestLoad_ExplicitValuesNotOverwritten(t *testing.T) {
	content := minimalYAML + `selector:
  min_dte: 25
  max_dte: 40
scheduler:
  interval: "5m"
  offset_seconds: 0
`
	path := writeConfigFile(t, t.TempDir(), "config.yaml", content)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Selector.MinDTE)
	assert.Equal(t, 40, cfg.Selector.MaxDTE)
	assert.Equal(t, "5m", cfg.Scheduler.Interval)
	// 显式写成 0 的键不被默认值覆盖。
	assert.Equal(t, 0, cfg.Scheduler.OffsetSeconds)
}

func TestLoad_IncludeMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", `market:
  base_url: "http://base:8080"
  http_timeout_seconds: 20
`)
	main := writeConfigFile(t, dir, "config.yaml", `include:
  - base.yaml
market:
  base_url: "http://override:8080"
universe:
  symbols:
    - symbol: AAPL
`)

	cfg, err := Load(main)
	require.NoError(t, err)

	// 主文件覆盖被包含文件，未覆盖的键保留。
	assert.Equal(t, "http://override:8080", cfg.Market.BaseURL)
	assert.Equal(t, 20, cfg.Market.HTTPTimeoutSeconds)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "MissingBaseURL",
			content: `universe:
  symbols:
    - symbol: AAPL
`,
			wantErr: "market.base_url",
		},
		{
			name:    "EmptyUniverse",
			content: "market:\n  base_url: \"http://x\"\n",
			wantErr: "universe.symbols",
		},
		{
			name: "DuplicateSymbol",
			content: `market:
  base_url: "http://x"
universe:
  symbols:
    - symbol: AAPL
    - symbol: AAPL
`,
			wantErr: "duplicate",
		},
		{
			name: "BadRSIRange",
			content: minimalYAML + `eligibility:
  csp_rsi_min: 70
  csp_rsi_max: 40
`,
			wantErr: "csp rsi range",
		},
		{
			name: "BadDTEWindow",
			content: minimalYAML + `selector:
  min_dte: 50
  max_dte: 40
`,
			wantErr: "dte window",
		},
		{
			name: "TargetDeltaOutsideBand",
			content: minimalYAML + `selector:
  delta_min: 0.15
  delta_max: 0.35
  target_delta: 0.5
`,
			wantErr: "target_delta",
		},
		{
			name: "IntervalTooShort",
			content: minimalYAML + `scheduler:
  interval: "10s"
`,
			wantErr: "scheduler.interval",
		},
		{
			name: "TelegramMissingToken",
			content: minimalYAML + `notify:
  telegram:
    enabled: true
`,
			wantErr: "telegram",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfigFile(t, t.TempDir(), "config.yaml", c.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.wantErr)
		})
	}
}

func TestLoad_BadPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
