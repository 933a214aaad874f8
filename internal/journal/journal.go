// Package journal keeps a record of every provisioning run.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// idFormat names run files. Millisecond precision keeps back-to-back runs apart.
const idFormat = "2006-01-02-150405.000"

// Run is the record of a single provisioning run.
type Run struct {
	ID              string          `json:"id" yaml:"id"`
	StartedAt       time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time       `json:"finished_at" yaml:"finished_at"`
	ShimsyncVersion string          `json:"shimsync_version" yaml:"shimsync_version"`
	Query           string          `json:"query,omitempty" yaml:"query,omitempty"`
	AppID           uint32          `json:"app_id" yaml:"app_id"`
	TargetRoot      string          `json:"target_root" yaml:"target_root"`
	TargetDir       string          `json:"target_dir" yaml:"target_dir"`
	PackageVersion  string          `json:"package_version,omitempty" yaml:"package_version,omitempty"`
	PackageStatus   string          `json:"package_status,omitempty" yaml:"package_status,omitempty"`
	Artifacts       []ArtifactEntry `json:"artifacts" yaml:"artifacts"`
	Generated       bool            `json:"settings_generated" yaml:"settings_generated"`
	SaveDir         string          `json:"save_dir" yaml:"save_dir"`
}

// ArtifactEntry is one backed-up and replaced artifact.
type ArtifactEntry struct {
	Kind     string `json:"kind" yaml:"kind"`
	Original string `json:"original" yaml:"original"`
	Backup   string `json:"backup" yaml:"backup"`
}

// RunInfo summarizes a run for listing.
type RunInfo struct {
	ID        string    `json:"id" yaml:"id"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	AppID     uint32    `json:"app_id" yaml:"app_id"`
	TargetDir string    `json:"target_dir" yaml:"target_dir"`
	Size      int64     `json:"size" yaml:"size"`
}

// Manager stores runs as JSON files in a directory.
type Manager struct {
	dir     string
	version string
	now     func() time.Time
}

// DefaultDir returns the directory runs are kept in when none is configured.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, "shimsync", "runs")
}

// NewManager creates a journal in dir. An empty dir selects DefaultDir.
func NewManager(dir, version string) *Manager {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Manager{dir: dir, version: version, now: time.Now}
}

// Dir returns the journal directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Record stores run, assigning its ID and finish time.
func (m *Manager) Record(run *Run) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	now := m.now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.FinishedAt = now
	run.ShimsyncVersion = m.version
	run.ID = run.StartedAt.UTC().Format(idFormat)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// Never overwrite an earlier run that happens to share the timestamp.
	base := run.ID
	for i := 1; ; i++ {
		f, err := os.OpenFile(m.path(run.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			run.ID = fmt.Sprintf("%s-%d", base, i)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create run file: %w", err)
		}
		if i > 1 {
			// ID changed after marshalling.
			if data, err = json.MarshalIndent(run, "", "  "); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to marshal run: %w", err)
			}
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write run file: %w", err)
		}
		return f.Close()
	}
}

// List returns all runs sorted by start time (newest first).
func (m *Manager) List() ([]RunInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	runs := []RunInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		run, err := m.load(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}

		runs = append(runs, RunInfo{
			ID:        run.ID,
			StartedAt: run.StartedAt,
			AppID:     run.AppID,
			TargetDir: run.TargetDir,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// Get retrieves a run by ID. Use "latest" to get the most recent run.
func (m *Manager) Get(id string) (*Run, error) {
	if id == "latest" {
		runs, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs recorded")
		}
		id = runs[0].ID
	}
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid run id: %s", id)
	}
	return m.load(m.path(id))
}

// Delete removes a run by ID.
func (m *Manager) Delete(id string) error {
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid run id: %s", id)
	}
	path := m.path(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("run not found: %s", id)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

func (m *Manager) load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	return &run, nil
}
