package datalake

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ObjectProperty describes one fetchable data object: its id and the number
// of records the datalake claims it holds.
type ObjectProperty struct {
	ID            string `json:"dl_id"`
	InstanceCount int64  `json:"dl_instance_count"`
}

// ObjectProperties is the properties endpoint's response shape. For a given
// business class the fields of several chunked queries are concatenated into
// one list, which defines both the id set to fetch and the expected total
// record count.
type ObjectProperties struct {
	Fields []ObjectProperty `json:"fields"`
}

// IDs returns the object ids in source order.
func (p ObjectProperties) IDs() []string {
	ids := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		ids = append(ids, f.ID)
	}
	return ids
}

// ExpectedRecordCount sums the advertised per-object record counts.
func (p ObjectProperties) ExpectedRecordCount() int64 {
	var total int64
	for _, f := range p.Fields {
		total += f.InstanceCount
	}
	return total
}

// SplitFilter is one element of the splitquery response.
type SplitFilter struct {
	QueryFilter string `json:"queryFilter"`
}

// PropertiesQuery queries the object-properties endpoints.
type PropertiesQuery struct {
	Client      *Client
	Endpoints   *Endpoints
	RecordLimit int
}

// Split asks for the set of query filters that chunk a business class's
// object properties.
func (q *PropertiesQuery) Split(ctx context.Context, filter string) ([]SplitFilter, error) {
	body, err := q.Client.Get(ctx, q.Endpoints.PropertiesSplit(filter))
	if err != nil {
		return nil, err
	}

	var filters []SplitFilter
	if err := json.Unmarshal(body, &filters); err != nil {
		return nil, errors.Wrap(err, "parse splitquery response")
	}
	return filters, nil
}

// Query fetches object properties for one filter chunk.
func (q *PropertiesQuery) Query(ctx context.Context, filter string) (*ObjectProperties, error) {
	body, err := q.Client.Get(ctx, q.Endpoints.PropertiesList(filter, q.RecordLimit))
	if err != nil {
		return nil, err
	}

	var props ObjectProperties
	if err := json.Unmarshal(body, &props); err != nil {
		return nil, errors.Wrap(err, "parse properties response")
	}
	return &props, nil
}

// Persist writes the compiled properties to disk. Later stages re-read the
// persisted copy so a resumed run works from on-disk state.
func (q *PropertiesQuery) Persist(props *ObjectProperties, path string) error {
	return persistJSON(props, path)
}

// LoadProperties reads a persisted object-properties file back into memory.
func LoadProperties(path string) (*ObjectProperties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read object properties '%s'", path)
	}

	var props ObjectProperties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, errors.Wrapf(err, "parse object properties '%s'", path)
	}
	return &props, nil
}

// MetadataQuery queries the data catalog for an object's schema metadata.
type MetadataQuery struct {
	Client    *Client
	Endpoints *Endpoints
}

// Query returns the `schema.properties` object of the catalog response.
func (q *MetadataQuery) Query(ctx context.Context, objectName string) (json.RawMessage, error) {
	body, err := q.Client.Get(ctx, q.Endpoints.ObjectMetadata(objectName))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Schema struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"schema"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "parse metadata response")
	}
	return payload.Schema.Properties, nil
}

func (q *MetadataQuery) Persist(properties json.RawMessage, path string) error {
	return persistJSON(properties, path)
}

// StreamQuery fetches one data object's raw payload by id. The response is
// newline-delimited JSON; parsing is left to the schema classifier so field
// order is preserved.
type StreamQuery struct {
	Client    *Client
	Endpoints *Endpoints
}

func (q *StreamQuery) Query(ctx context.Context, id string) ([]byte, error) {
	return q.Client.Get(ctx, q.Endpoints.StreamByID(id))
}

func persistJSON(v interface{}, path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write '%s'", path)
	}
	return nil
}
