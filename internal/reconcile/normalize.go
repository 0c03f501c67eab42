package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/harborlabs/stevedore/internal/record"
)

// NormalizeDetails converts an ingestion-detail payload into the canonical
// ordered sequence. Ingestion backends are inconsistent about the shape:
// a single detail object, an array of details, or a map keyed by file or
// table name all occur in the wild. Downstream consumers only ever see the
// sequence form; this is the one place that knows about the three shapes.
//
// Map entries are ordered by sorted key so the result is deterministic.
func NormalizeDetails(raw json.RawMessage) ([]record.IngestionDetail, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var list []record.IngestionDetail
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("normalize detail array: %w", err)
		}
		return list, nil
	case '{':
		// A bare detail object carries a "type" tag; a name-keyed map
		// does not.
		var single record.IngestionDetail
		if err := json.Unmarshal(trimmed, &single); err == nil && single.Type != "" {
			return []record.IngestionDetail{single}, nil
		}

		var keyed map[string]record.IngestionDetail
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, fmt.Errorf("normalize detail map: %w", err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]record.IngestionDetail, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyed[k])
		}
		return out, nil
	}
	return nil, fmt.Errorf("normalize details: unsupported payload shape")
}
