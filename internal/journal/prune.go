package journal

import (
	"fmt"
)

// DefaultKeepCount is the default number of runs to retain.
const DefaultKeepCount = 50

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted []RunInfo `json:"deleted" yaml:"deleted"`
	Kept    int       `json:"kept" yaml:"kept"`
}

// Prune removes old runs, keeping only the most recent keep runs.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	runs, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{}
	if len(runs) <= keep {
		result.Kept = len(runs)
		return result, nil
	}

	result.Kept = keep
	for _, run := range runs[keep:] {
		if err := m.Delete(run.ID); err != nil {
			return nil, fmt.Errorf("failed to delete run %s: %w", run.ID, err)
		}
		result.Deleted = append(result.Deleted, run)
	}

	return result, nil
}
