// Package config loads the INI application config that drives extraction
// behavior: active tenant, filename templates, extraction groups and the
// incremental-load settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         EnvConfig         `mapstructure:"env_vars"`
	Files       FileConfig        `mapstructure:"filename_templates"`
	Extractions ExtractionsConfig `mapstructure:"extractions"`
	Groups      map[string]string `mapstructure:"extraction_groups"`
	Inc         IncConfig         `mapstructure:"inc_extraction"`
	AWS         AWSConfig         `mapstructure:"aws"`
	JobTracker  JobTrackerConfig  `mapstructure:"job_tracker"`
}

type EnvConfig struct {
	ActiveTenant string `mapstructure:"active_tenant"`
	// Base URLs are configurable so non-production tenants and test
	// doubles can be targeted without code changes.
	SSOBaseURL string `mapstructure:"sso_base_url"`
	IONBaseURL string `mapstructure:"ion_base_url"`
}

type ExtractionsConfig struct {
	Active      string `mapstructure:"active"`
	RecordLimit int    `mapstructure:"record_limit"`
}

// ActiveGroups returns the names of the extraction groups scheduled to run,
// one per line in the config value.
func (e ExtractionsConfig) ActiveGroups() []string {
	return splitLines(e.Active)
}

type IncConfig struct {
	CutoffHour          int    `mapstructure:"cutoff_hour"`
	ActiveIncIDOverride int64  `mapstructure:"active_inc_id_override"`
	Timezone            string `mapstructure:"timezone"`
}

// ActiveIncID buckets the current time into an incremental-window id: the
// unix timestamp of 05:00 on the window's day, rolled back one day before
// the cutoff hour. An override pins the id for reruns.
func (i IncConfig) ActiveIncID(now time.Time) int64 {
	if i.ActiveIncIDOverride != 0 {
		return i.ActiveIncIDOverride
	}

	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	id := time.Date(local.Year(), local.Month(), local.Day(), 5, 0, 0, 0, loc).Unix()
	if local.Hour() < i.CutoffHour {
		id -= 86400
	}
	return id
}

type AWSConfig struct {
	Endpoint     string `mapstructure:"s3_endpoint"`
	Bucket       string `mapstructure:"s3_databrew_bucket_name"`
	OutputFolder string `mapstructure:"s3_databrew_bucket_output_folder_name"`
	AccessKey    string `mapstructure:"access_key_id"`
	SecretKey    string `mapstructure:"secret_access_key"`
	UseSSL       bool   `mapstructure:"s3_use_ssl"`
}

type JobTrackerConfig struct {
	ConnString string `mapstructure:"conn_string"`
	Table      string `mapstructure:"table"`
}

// Load reads the INI config from the given path and returns a Config value.
// The value is passed explicitly to each component; there is no package-level
// config state.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env_vars.sso_base_url", "https://mingle35-sso.inforgov.com:443")
	v.SetDefault("env_vars.ion_base_url", "https://mingle35-ionapi.inforgov.com")

	v.SetDefault("extractions.record_limit", 10000)

	v.SetDefault("inc_extraction.cutoff_hour", 5)
	v.SetDefault("inc_extraction.timezone", "America/Denver")

	v.SetDefault("job_tracker.table", "job_tracker")

	v.SetDefault("filename_templates.datalake_tokens", "config/tokens.json")
	v.SetDefault("filename_templates.oauth_credentials", "config/credentials.ionapi")
	v.SetDefault("filename_templates.schemas", "business-classes/{business_class}/schemas.json")
	v.SetDefault("filename_templates.obj_props", "business-classes/{business_class}/obj_props.json")
	v.SetDefault("filename_templates.bc_extraction_history", "business-classes/{business_class}/extraction_history.csv")
	v.SetDefault("filename_templates.bc_inc_extraction_history", "business-classes/{business_class}/inc_extraction_history.csv")
	v.SetDefault("filename_templates.bc_data_by_schema", "business-classes/{business_class}/{business_class}_v{version}.csv")
	v.SetDefault("filename_templates.bc_data_by_schema_inc", "business-classes/{bc_folder}/inc/{active_inc_id}/{bc_file}_v{version}.csv")
	v.SetDefault("filename_templates.inc_data_active_id", "business-classes/{bc_folder}/inc/{active_inc_id}")
	v.SetDefault("filename_templates.bc_metadata_filename", "business-classes/{bc_name}/metadata.json")
	v.SetDefault("filename_templates.columns_to_load", "business-classes/{business_class}/columns.csv")
	v.SetDefault("filename_templates.recovery", "tmp/{business_class}_ids_extracted.csv")
	v.SetDefault("filename_templates.log_file", "logs/extract.log")
	v.SetDefault("filename_templates.agencies", "agencies.csv")
	v.SetDefault("filename_templates.recounts", "fsm-data/{business_class}_{agency}_recounts.csv")
}

// BusinessClasses returns the business classes configured for an extraction
// group, one per line in the group's config value.
func (c *Config) BusinessClasses(group string) []string {
	return splitLines(c.Groups[group])
}

// splitLines splits a config list value on newlines or commas, dropping
// blanks.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ','
	}) {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
