package record

// Store is the authoritative collection of FileRecords for one pipeline
// run. It preserves insertion order for display and keys records by ID
// internally. Store is a value type: every mutation returns a new snapshot,
// so a reconciliation pass is applied atomically relative to readers; no
// partial, field-by-field update is ever observable.
type Store struct {
	records []FileRecord
	byID    map[string]int
}

// NewStore builds a store over the given records, preserving their order.
func NewStore(records []FileRecord) Store {
	s := Store{
		records: make([]FileRecord, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for i, r := range records {
		s.records[i] = r.Clone()
		s.byID[r.ID] = i
	}
	return s
}

// Len returns the number of records.
func (s Store) Len() int { return len(s.records) }

// Records returns a deep copy of all records in insertion order.
func (s Store) Records() []FileRecord {
	out := make([]FileRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Get returns the record with the given ID.
func (s Store) Get(id string) (FileRecord, bool) {
	i, ok := s.byID[id]
	if !ok {
		return FileRecord{}, false
	}
	return s.records[i].Clone(), true
}

// ByName returns the first record with the given name. Name uniqueness is
// enforced at selection time, so first match is the only match.
func (s Store) ByName(name string) (FileRecord, bool) {
	for _, r := range s.records {
		if r.Name == name {
			return r.Clone(), true
		}
	}
	return FileRecord{}, false
}

// HasName reports whether any record carries the given name.
func (s Store) HasName(name string) bool {
	_, ok := s.ByName(name)
	return ok
}

// Append returns a new store with r added at the end.
func (s Store) Append(r FileRecord) Store {
	return NewStore(append(s.records, r))
}

// Remove returns a new store without the record of the given ID. Removing
// an unknown ID returns the store unchanged.
func (s Store) Remove(id string) Store {
	i, ok := s.byID[id]
	if !ok {
		return s
	}
	out := make([]FileRecord, 0, len(s.records)-1)
	out = append(out, s.records[:i]...)
	out = append(out, s.records[i+1:]...)
	return NewStore(out)
}

// Replace swaps the entire record set for a new one.
func (s Store) Replace(records []FileRecord) Store {
	return NewStore(records)
}

// Transform applies a pure per-record transform to every record and
// returns the resulting snapshot. The transform receives a deep copy, so
// it cannot alias the previous snapshot.
func (s Store) Transform(fn func(FileRecord) FileRecord) Store {
	out := make([]FileRecord, len(s.records))
	for i, r := range s.records {
		out[i] = fn(r.Clone())
	}
	return NewStore(out)
}

// Filter returns the records matching pred in insertion order. Views are
// computed on demand, never cached, so they can not go stale.
func (s Store) Filter(pred func(FileRecord) bool) []FileRecord {
	var out []FileRecord
	for _, r := range s.records {
		if pred(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Selected returns the records currently selected for batch operations.
func (s Store) Selected() []FileRecord {
	return s.Filter(func(r FileRecord) bool { return r.Selected })
}

// SelectedProcessed returns the selected records that completed analysis.
func (s Store) SelectedProcessed() []FileRecord {
	return s.Filter(func(r FileRecord) bool { return r.Selected && r.Processed })
}

// WithIngestionStatus returns the selected records whose last ingestion
// outcome matches status.
func (s Store) WithIngestionStatus(status IngestionStatus) []FileRecord {
	return s.Filter(func(r FileRecord) bool { return r.Selected && r.IngestionStatus == status })
}
