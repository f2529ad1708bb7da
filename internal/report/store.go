package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skillbench/skillbench/internal/matrix"
)

// Store persists runs under a results root, one directory per run. The
// store is append-only: a run directory is never overwritten, and files are
// written to a temp name and renamed so a crashed run never leaves a
// half-written document behind.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the results root directory.
func (s *Store) Root() string {
	return s.root
}

// NewRunID builds a run identifier from a timestamp.
func NewRunID(ts time.Time) string {
	return ts.Format("20060102-150405")
}

// Save writes a completed run. Layout:
//
//	<root>/<run-id>/run.json                 full run document
//	<root>/<run-id>/<provider>_<model>.json  per-unit records
//	<root>/<run-id>/<provider>_<model>.exit_code
//
// The exit code file holds the unit's failed-record count, so shell
// tooling can gate on a unit without parsing JSON.
func (s *Store) Save(run *Run) error {
	runDir := filepath.Join(s.root, run.ID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run %s already exists, refusing to overwrite", run.ID)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	for _, ur := range run.Units {
		base := sanitizeFilename(ur.Unit.Config.Key())
		if err := writeJSON(filepath.Join(runDir, base+".json"), ur); err != nil {
			return fmt.Errorf("failed to write unit %s: %w", ur.Unit.Config.Key(), err)
		}

		failed := 0
		for _, rec := range ur.Records {
			if !rec.Decision.Pass {
				failed++
			}
		}
		// A unit that never produced records still failed.
		if failed == 0 && ur.Err != "" {
			failed = 1
		}
		exitFile := filepath.Join(runDir, base+".exit_code")
		if err := atomicWrite(exitFile, []byte(strconv.Itoa(failed)+"\n")); err != nil {
			return fmt.Errorf("failed to write exit code for %s: %w", ur.Unit.Config.Key(), err)
		}
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), run); err != nil {
		return fmt.Errorf("failed to write run document: %w", err)
	}
	return nil
}

// Load reads a run document by ID.
func (s *Store) Load(runID string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(s.root, runID, "run.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read run %s: %w", runID, err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", runID, err)
	}
	return &run, nil
}

// LoadUnit reads one unit's records from a run.
func (s *Store) LoadUnit(runID, unitKey string) (*matrix.UnitResult, error) {
	path := filepath.Join(s.root, runID, sanitizeFilename(unitKey)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit %s of run %s: %w", unitKey, runID, err)
	}
	var ur matrix.UnitResult
	if err := json.Unmarshal(data, &ur); err != nil {
		return nil, fmt.Errorf("failed to parse unit %s of run %s: %w", unitKey, runID, err)
	}
	return &ur, nil
}

// List returns run IDs sorted newest first. A missing root is an empty
// store, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), "run.json")); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Latest returns the most recent run, or an error when the store is empty.
func (s *Store) Latest() (*Run, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no runs found in %s", s.root)
	}
	return s.Load(ids[0])
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite writes via a temp file and rename so readers never observe a
// partial document.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
