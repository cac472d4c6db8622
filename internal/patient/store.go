package patient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var ErrNotFound = errors.New("patient not found")

// Store is an immutable, in-memory snapshot of patient records. It is safe for
// concurrent reads.
type Store struct {
	records []Record
	byID    map[string]int
}

func NewStore(records []Record) (*Store, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	byID := make(map[string]int, len(records))
	for i, rec := range records {
		if _, ok := byID[rec.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		byID[rec.ID] = i
	}

	return &Store{records: records, byID: byID}, nil
}

func (s *Store) Len() int {
	return len(s.records)
}

// All returns a copy of the records in file order.
func (s *Store) All() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Get(id string) (Record, error) {
	i, ok := s.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.records[i], nil
}

// Options returns the selector labels, "ID (Name)", in file order.
func (s *Store) Options() []string {
	return lo.Map(s.records, func(r Record, _ int) string {
		return r.DisplayName()
	})
}

// ParseSelection extracts the patient id from a selector label. A bare id is
// returned unchanged.
func ParseSelection(selection string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(selection), " (")
	return id
}
