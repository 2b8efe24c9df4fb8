package config

import (
	"strconv"
	"strings"
)

// FileConfig holds the filename templates for everything the extractor
// persists. Templates use {placeholder} markers filled in by the accessor
// methods, so the on-disk layout stays fully config-driven.
type FileConfig struct {
	Tokens          string `mapstructure:"datalake_tokens"`
	Credentials     string `mapstructure:"oauth_credentials"`
	Schemas         string `mapstructure:"schemas"`
	ObjProps        string `mapstructure:"obj_props"`
	History         string `mapstructure:"bc_extraction_history"`
	IncHistory      string `mapstructure:"bc_inc_extraction_history"`
	DataBySchema    string `mapstructure:"bc_data_by_schema"`
	IncDataBySchema string `mapstructure:"bc_data_by_schema_inc"`
	IncDataFolder   string `mapstructure:"inc_data_active_id"`
	Metadata        string `mapstructure:"bc_metadata_filename"`
	ColumnsToLoad   string `mapstructure:"columns_to_load"`
	Recovery        string `mapstructure:"recovery"`
	LogFile         string `mapstructure:"log_file"`
	Agencies        string `mapstructure:"agencies"`
	Recounts        string `mapstructure:"recounts"`
}

func render(template string, pairs ...string) string {
	repl := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		repl = append(repl, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(repl...).Replace(template)
}

func (f FileConfig) TokenFile() string {
	return f.Tokens
}

func (f FileConfig) CredentialsFile() string {
	return f.Credentials
}

func (f FileConfig) SchemasFile(businessClass string) string {
	return render(f.Schemas, "business_class", businessClass)
}

func (f FileConfig) ObjPropsFile(businessClass string) string {
	return render(f.ObjProps, "business_class", businessClass)
}

func (f FileConfig) HistoryFile(businessClass string) string {
	return render(f.History, "business_class", businessClass)
}

func (f FileConfig) IncHistoryFile(businessClass string) string {
	return render(f.IncHistory, "business_class", businessClass)
}

func (f FileConfig) DataFile(businessClass, version string) string {
	return render(f.DataBySchema, "business_class", businessClass, "version", version)
}

// DataFilePattern matches every versioned data file of a business class.
func (f FileConfig) DataFilePattern(businessClass string) string {
	return render(f.DataBySchema, "business_class", businessClass, "version", "*")
}

func (f FileConfig) IncDataFile(businessClass string, incID int64, version string) string {
	return render(f.IncDataBySchema,
		"bc_folder", businessClass,
		"active_inc_id", strconv.FormatInt(incID, 10),
		"bc_file", businessClass,
		"version", version,
	)
}

func (f FileConfig) IncFolder(businessClass string, incID int64) string {
	return render(f.IncDataFolder,
		"bc_folder", businessClass,
		"active_inc_id", strconv.FormatInt(incID, 10),
	)
}

func (f FileConfig) MetadataFile(businessClass string) string {
	return render(f.Metadata, "bc_name", businessClass)
}

func (f FileConfig) ColumnsFile(businessClass string) string {
	return render(f.ColumnsToLoad, "business_class", businessClass)
}

func (f FileConfig) RecoveryFile(businessClass string) string {
	return render(f.Recovery, "business_class", businessClass)
}

func (f FileConfig) AgenciesFile() string {
	return f.Agencies
}

func (f FileConfig) RecountsFile(businessClass, agency string) string {
	return render(f.Recounts, "business_class", businessClass, "agency", agency)
}
