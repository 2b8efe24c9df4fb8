package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumaops/datalake-extract/internal/config"
)

func TestLoadParsesSectionsAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.config")
	require.NoError(t, os.WriteFile(path, []byte(`
[env_vars]
active_tenant = TENANT_PRD

[extractions]
active = core

[extraction_groups]
core = FSM_Contract, FSM_Vendor
`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "TENANT_PRD", cfg.Env.ActiveTenant)
	require.Equal(t, []string{"core"}, cfg.Extractions.ActiveGroups())
	require.Equal(t, []string{"FSM_Contract", "FSM_Vendor"}, cfg.BusinessClasses("core"))

	// Unspecified values fall back to defaults.
	require.Equal(t, 10000, cfg.Extractions.RecordLimit)
	require.Equal(t, "https://mingle35-ionapi.inforgov.com", cfg.Env.IONBaseURL)
	require.Equal(t, 5, cfg.Inc.CutoffHour)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.config"))
	require.Error(t, err)
}

func TestActiveIncIDBucketsByCutoff(t *testing.T) {
	inc := config.IncConfig{CutoffHour: 5, Timezone: "UTC"}

	// 2026-03-10 12:00 UTC, past the cutoff: window anchors at 05:00 same day.
	afterCutoff := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t,
		time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC).Unix(),
		inc.ActiveIncID(afterCutoff))

	// 03:00 is before the cutoff, so the window still belongs to the
	// previous day.
	beforeCutoff := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	require.Equal(t,
		time.Date(2026, 3, 9, 5, 0, 0, 0, time.UTC).Unix(),
		inc.ActiveIncID(beforeCutoff))
}

func TestActiveIncIDOverrideWins(t *testing.T) {
	inc := config.IncConfig{CutoffHour: 5, Timezone: "UTC", ActiveIncIDOverride: 1700000000}
	require.Equal(t, int64(1700000000), inc.ActiveIncID(time.Now()))
}

func TestFileConfigTemplates(t *testing.T) {
	files := config.FileConfig{
		Schemas:         "business-classes/{business_class}/schemas.json",
		IncDataBySchema: "business-classes/{bc_folder}/inc/{active_inc_id}/{bc_file}_v{version}.csv",
		DataBySchema:    "business-classes/{business_class}/{business_class}_v{version}.csv",
		Recounts:        "fsm-data/{business_class}_{agency}_recounts.csv",
	}

	require.Equal(t, "business-classes/FSM_Contract/schemas.json", files.SchemasFile("FSM_Contract"))
	require.Equal(t, "business-classes/FSM_Contract/inc/1700000000/FSM_Contract_v3.csv",
		files.IncDataFile("FSM_Contract", 1700000000, "3"))
	require.Equal(t, "business-classes/FSM_Contract/FSM_Contract_v*.csv", files.DataFilePattern("FSM_Contract"))
	require.Equal(t, "fsm-data/GLTransactionDetail_951_recounts.csv", files.RecountsFile("GLTransactionDetail", "951"))
}
