// ABOUTME: Immutable in-memory table of vulnerability records loaded once from a source file.
// ABOUTME: Serves keyword search and exact identifier lookup without locking.

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jfeddern/VulnSearch/internal/engine"
	"github.com/jfeddern/VulnSearch/internal/types"

	"github.com/sirupsen/logrus"
)

// DefaultPath is the source used when no explicit path is given
const DefaultPath = "vullist.xlsx"

// Store holds the loaded vulnerability table. It is never modified after
// construction, so reads need no synchronization.
type Store struct {
	path     string
	loadedAt time.Time

	records []types.Record
	folded  [][]string // searchable fields per row, in engine.SearchableFields order
	byID    map[string]int
}

// New builds a store from records already in memory, preserving their order
func New(records []types.Record) (*Store, error) {
	s := &Store{
		loadedAt: time.Now(),
		records:  make([]types.Record, 0, len(records)),
		folded:   make([][]string, 0, len(records)),
		byID:     make(map[string]int, len(records)),
	}

	for _, record := range records {
		if record.ID == "" {
			return nil, errors.New("record with empty identifier")
		}
		if _, exists := s.byID[record.ID]; exists {
			return nil, fmt.Errorf("duplicate identifier %q", record.ID)
		}

		s.byID[record.ID] = len(s.records)
		s.records = append(s.records, record.Clone())
		s.folded = append(s.folded, []string{
			engine.Fold(record.Software),
			engine.Fold(record.Version),
			engine.Fold(record.Description),
			engine.Fold(record.Name),
			engine.Fold(record.Vendor),
		})
	}

	return s, nil
}

// Load reads the whole table at path into a new store
func Load(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithFields(logrus.Fields{
		"component": "record_store",
		"path":      path,
	})
	startTime := time.Now()

	// Anything other than a regular, openable file counts as a missing source
	info, err := os.Stat(path)
	if err != nil {
		return nil, &DataSourceNotFoundError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &DataSourceNotFoundError{Path: path, Err: fs.ErrInvalid}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataSourceNotFoundError{Path: path, Err: err}
	}
	file.Close()

	entry.Info("Loading vulnerability data")

	builder, err := readSource(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	s, err := New(builder.records)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	s.path = path

	entry.WithFields(logrus.Fields{
		"records":      len(s.records),
		"skipped_rows": builder.skipped,
		"duration":     time.Since(startTime),
	}).Info("Vulnerability data loaded")

	return s, nil
}

// Search returns up to limit records matching every token of query, in table order.
// An empty query or a non-positive limit yields no records.
func (s *Store) Search(query string, limit int) []types.Record {
	indices := engine.Select(len(s.records), limit, engine.Tokenize(query), func(i int) []string {
		return s.folded[i]
	})

	results := make([]types.Record, 0, len(indices))
	for _, i := range indices {
		results = append(results, s.records[i].Clone())
	}
	return results
}

// LookupByID returns the record whose identifier equals id exactly
func (s *Store) LookupByID(id string) (types.Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return types.Record{}, false
	}
	return s.records[i].Clone(), true
}

// Len returns the number of records in the table
func (s *Store) Len() int {
	return len(s.records)
}

// Path returns the source the table was loaded from, empty for stores built with New
func (s *Store) Path() string {
	return s.path
}

// LoadedAt returns when the table was built
func (s *Store) LoadedAt() time.Time {
	return s.loadedAt
}
