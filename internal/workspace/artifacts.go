// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// ReadSnapshot loads a topic snapshot.
func ReadSnapshot(path string) (types.Snapshot, error) {
	var s types.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return s, nil
}

// WriteSnapshot persists a topic snapshot atomically.
func WriteSnapshot(path string, s types.Snapshot) error {
	return WriteJSON(path, s)
}

// ReadDecision loads a selection decision.
func ReadDecision(path string) (types.Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading decision: %w", err)
	}
	var d types.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing decision %s: %w", path, err)
	}
	return d, nil
}

// WriteDecision persists a selection decision atomically.
func WriteDecision(path string, d types.Decision) error {
	if d == nil {
		d = types.Decision{}
	}
	return WriteJSON(path, d)
}

// ReadSummaries loads a summary mapping. A missing or empty file yields an
// empty mapping.
func ReadSummaries(path string) (map[string]types.SummaryRecord, error) {
	out := make(map[string]types.SummaryRecord)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("reading summaries: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing summaries %s: %w", path, err)
	}
	if out == nil {
		out = make(map[string]types.SummaryRecord)
	}
	return out, nil
}

// WriteSummaries persists a summary mapping atomically.
func WriteSummaries(path string, m map[string]types.SummaryRecord) error {
	if m == nil {
		m = map[string]types.SummaryRecord{}
	}
	return WriteJSON(path, m)
}
