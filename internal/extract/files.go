package extract

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lumaops/datalake-extract/internal/config"
)

// DataFiles manages the versioned data files of one business class: one
// delimited text file per schema version, one record per line, append-only.
// Incremental loads write into the active window's folder instead of the
// full-load location.
type DataFiles struct {
	files       config.FileConfig
	bc          string
	incremental bool
	incID       int64
}

func NewDataFiles(files config.FileConfig, businessClass string, incremental bool, incID int64) *DataFiles {
	return &DataFiles{files: files, bc: businessClass, incremental: incremental, incID: incID}
}

func (d *DataFiles) path(version string) string {
	if d.incremental {
		return d.files.IncDataFile(d.bc, d.incID, version)
	}
	return d.files.DataFile(d.bc, version)
}

// CreateEmpty truncates or creates a placeholder file for each known schema
// version so downstream consumers always find the full version set.
func (d *DataFiles) CreateEmpty(versions []string) error {
	for _, v := range versions {
		path := d.path(v)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create data directory for '%s': %w", path, err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("failed to create data file '%s': %w", path, err)
		}
		f.Close()
	}
	return nil
}

// AppendRows appends formatted rows to the version's data file.
func (d *DataFiles) AppendRows(version string, rows []string) error {
	if len(rows) == 0 {
		return nil
	}

	path := d.path(version)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory for '%s': %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open data file '%s': %w", path, err)
	}
	defer f.Close()

	for _, row := range rows {
		if _, err := f.WriteString(row + "\n"); err != nil {
			return fmt.Errorf("failed to append to data file '%s': %w", path, err)
		}
	}
	return nil
}

// RemoveAll deletes every versioned data file of the business class. Invoked
// before a full load so stale rows cannot accumulate.
func (d *DataFiles) RemoveAll() error {
	matches, err := filepath.Glob(d.files.DataFilePattern(d.bc))
	if err != nil {
		return fmt.Errorf("failed to glob data files for '%s': %w", d.bc, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("failed to remove data file '%s': %w", m, err)
		}
	}
	return nil
}

// TotalRows counts the lines across the versioned files written by this run,
// for reconciliation against the source's advertised record counts.
func (d *DataFiles) TotalRows(versions []string) (int64, error) {
	var total int64
	for _, v := range versions {
		n, err := countLines(d.path(v))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open data file '%s': %w", path, err)
	}
	defer f.Close()

	var count int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count lines in '%s': %w", path, err)
	}
	return count, nil
}
