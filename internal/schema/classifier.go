package schema

import (
	"github.com/rs/zerolog"
)

// Classifier partitions an incoming batch of heterogeneous records into
// schema-version buckets, growing the registry as new shapes appear.
// Classification is single-writer per business class: registry mutations are
// visible to the caller immediately and no concurrent classification of the
// same class is permitted.
type Classifier struct {
	log zerolog.Logger
}

func NewClassifier(log zerolog.Logger) *Classifier {
	return &Classifier{log: log}
}

// Classify assigns every record to a schema version by comparing its field
// name set against the shapes already known to the registry. Comparison is
// set-based: field order does not distinguish schemas. Unknown shapes
// allocate the next dense version id and match identical records later in
// the same batch. The reserved "0" bucket is excluded from the result.
func (c *Classifier) Classify(records []Record, reg Registry) map[string][]string {
	versions := reg.Versions()
	knownSets := make([]map[string]struct{}, len(versions))
	for i, v := range versions {
		set := make(map[string]struct{}, len(reg[v]))
		for _, f := range reg[v] {
			set[f] = struct{}{}
		}
		knownSets[i] = set
	}

	buckets := make(map[string][]string, len(versions))
	for _, v := range versions {
		buckets[v] = nil
	}

	for _, record := range records {
		keys := record.KeySet()

		version := ""
		for i, known := range knownSets {
			if setsEqual(keys, known) {
				version = versions[i]
				break
			}
		}

		if version == "" {
			c.log.Debug().Msg("New schema found")
			version = reg.Allocate(record.Fields)
			versions = append(versions, version)
			knownSets = append(knownSets, keys)
			buckets[version] = nil
		}

		buckets[version] = append(buckets[version], formatRow(record))
	}

	delete(buckets, "0")
	return buckets
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
