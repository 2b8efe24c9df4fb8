package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one parsed data record with its field order intact. Values stay
// as raw JSON so numbers are written back exactly as the source sent them.
type Record struct {
	Fields []string
	Values []json.RawMessage
}

// KeySet returns the record's field names as a set for order-insensitive
// schema comparison.
func (r Record) KeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Fields))
	for _, f := range r.Fields {
		set[f] = struct{}{}
	}
	return set
}

// ParseRecords splits a newline-delimited JSON payload into records. Every
// non-empty line is a record; the caller excludes header lines upstream if
// needed.
func ParseRecords(body []byte) ([]Record, error) {
	var records []Record
	for _, line := range bytes.Split(bytes.TrimSpace(body), []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		record, err := parseRecord(line)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// parseRecord decodes one JSON object token by token, preserving the order
// in which the source emitted its keys.
func parseRecord(line []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))

	tok, err := dec.Token()
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Record{}, fmt.Errorf("record is not a JSON object: %s", line)
	}

	var record Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Record{}, fmt.Errorf("failed to parse record key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Record{}, fmt.Errorf("unexpected record key token: %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return Record{}, fmt.Errorf("failed to parse value for field '%s': %w", key, err)
		}

		record.Fields = append(record.Fields, key)
		record.Values = append(record.Values, value)
	}

	return record, nil
}

// formatValue renders a raw JSON value for a delimited row. Strings are
// unquoted; everything else keeps its source text.
func formatValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// SanitizeValue reproduces the legacy quoting scheme byte for byte: embedded
// quote characters and newlines are stripped and the value is wrapped in
// literal quotes so the row survives downstream CSV ingestion. This is
// intentionally not RFC-4180 escaping.
func SanitizeValue(val string) string {
	val = `"` + val + `"`
	val = strings.ReplaceAll(val, `"`, "")
	val = strings.ReplaceAll(val, "\n", "")
	return `"` + val + `"`
}

// formatRow serializes a record's values into one delimited row.
func formatRow(r Record) string {
	parts := make([]string, 0, len(r.Values))
	for _, raw := range r.Values {
		parts = append(parts, SanitizeValue(formatValue(raw)))
	}
	return strings.Join(parts, ",")
}
