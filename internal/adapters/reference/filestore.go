// Package reference serves the EPA nonattainment table from a JSON file in the
// local cache directory.
package reference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samirrijal/sitescout/internal/core/ports"
)

// NonattainmentFile is the cache file name inside the cache directory.
const NonattainmentFile = "epa_nonattainment.json"

// DefaultNonattainment is the built-in table of Texas counties in ozone
// nonattainment, keyed by state+county FIPS.
func DefaultNonattainment() map[string][]string {
	return map[string][]string{
		"48201": {"Ozone"}, // Harris
		"48113": {"Ozone"}, // Dallas
		"48439": {"Ozone"}, // Tarrant
		"48085": {"Ozone"}, // Collin
		"48121": {"Ozone"}, // Denton
		"48141": {"Ozone"}, // El Paso
	}
}

// FileStore implements ports.ReferenceRepository on top of a JSON file. The
// file is read once; when it is missing the built-in table is used and
// written to disk best-effort.
type FileStore struct {
	path   string
	logger *slog.Logger

	once  sync.Once
	table map[string][]string
}

var _ ports.ReferenceRepository = (*FileStore)(nil)

// NewFileStore creates a store reading <dir>/epa_nonattainment.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		path:   filepath.Join(dir, NonattainmentFile),
		logger: slog.Default().With("component", "reference"),
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) NonattainmentPollutants(ctx context.Context, countyFIPS string) ([]string, bool, error) {
	s.once.Do(s.load)
	pollutants, ok := s.table[countyFIPS]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), pollutants...), true, nil
}

// Ping loads the table if needed. The built-in fallback means it never fails.
func (s *FileStore) Ping(ctx context.Context) error {
	s.once.Do(s.load)
	return nil
}

func (s *FileStore) load() {
	table, err := ReadTable(s.path)
	switch {
	case err == nil:
		s.table = table
		return
	case errors.Is(err, fs.ErrNotExist):
		s.table = DefaultNonattainment()
		if err := WriteTable(s.path, s.table); err != nil {
			s.logger.Warn("could not cache reference table", "path", s.path, "error", err)
		}
	default:
		// leave a corrupt file in place for inspection
		s.logger.Warn("could not load reference table, using built-in data", "path", s.path, "error", err)
		s.table = DefaultNonattainment()
	}
}

// ReadTable parses a FIPS -> pollutants JSON object.
func ReadTable(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table map[string][]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if table == nil {
		table = map[string][]string{}
	}
	return table, nil
}

// WriteTable writes table as indented JSON, creating parent directories.
func WriteTable(path string, table map[string][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Counties returns the FIPS codes in a table, sorted.
func Counties(table map[string][]string) []string {
	out := make([]string, 0, len(table))
	for fips := range table {
		out = append(out, fips)
	}
	sort.Strings(out)
	return out
}
