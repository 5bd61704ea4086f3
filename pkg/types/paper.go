// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline:
// papers and topic snapshots (search), selection decisions (selection),
// summary records (summarization), and stage configuration.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// DateLayout is the calendar-date form used for Paper.Published.
const DateLayout = "2006-01-02"

// Paper holds the metadata retrieved for one search result. Papers are
// immutable once retrieved. JSON field names match the on-disk snapshot
// format consumed by report tooling.
type Paper struct {
	// ID is the search service's short identifier (e.g. "2404.01234v1").
	ID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title with whitespace runs collapsed.
	Title string `json:"paper_title" yaml:"paper_title"`

	// EntryURL is the canonical abstract-page URL.
	EntryURL string `json:"paper_entry_id" yaml:"paper_entry_id"`

	// Authors is the author list joined with ", ".
	Authors string `json:"paper_authors" yaml:"paper_authors"`

	// PrimaryCategory is the primary subject category (e.g. "cs.AI").
	PrimaryCategory string `json:"paper_primary_category" yaml:"paper_primary_category"`

	// Published is the first publication date in DateLayout form.
	Published string `json:"paper_published_time" yaml:"paper_published_time"`

	// Abstract is the abstract normalized to a single line.
	Abstract string `json:"paper_abstract" yaml:"paper_abstract"`

	// PDFURL is the document link reported by the search service.
	PDFURL string `json:"paper_pdf_url,omitempty" yaml:"paper_pdf_url,omitempty"`
}

// Snapshot is one day's search result for a topic: query string mapped to
// paper ID mapped to Paper. On disk it is wrapped under the topic name as
// {"<topic>": {"<query>": {"<paper_id>": Paper}}}.
type Snapshot struct {
	Topic   string
	Queries map[string]map[string]Paper
}

// MarshalJSON writes the topic-wrapped form.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	queries := s.Queries
	if queries == nil {
		queries = map[string]map[string]Paper{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]map[string]map[string]Paper{s.Topic: queries}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads the topic-wrapped form. Exactly one topic is expected.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wrapped map[string]map[string]map[string]Paper
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if len(wrapped) != 1 {
		return fmt.Errorf("snapshot must hold exactly one topic, found %d", len(wrapped))
	}
	for topic, queries := range wrapped {
		s.Topic = topic
		s.Queries = queries
	}
	return nil
}

// QueryNames returns the snapshot's query strings in sorted order.
func (s Snapshot) QueryNames() []string {
	names := make([]string, 0, len(s.Queries))
	for q := range s.Queries {
		names = append(names, q)
	}
	sort.Strings(names)
	return names
}

// Flatten returns every paper in the snapshot once, ordered by query then
// paper ID. A paper found by several queries appears at its first position.
func (s Snapshot) Flatten() []Paper {
	seen := make(map[string]bool)
	var papers []Paper
	for _, q := range s.QueryNames() {
		ids := make([]string, 0, len(s.Queries[q]))
		for id := range s.Queries[q] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			papers = append(papers, s.Queries[q][id])
		}
	}
	return papers
}

// Lookup returns the flattened papers keyed by ID.
func (s Snapshot) Lookup() map[string]Paper {
	out := make(map[string]Paper)
	for _, p := range s.Flatten() {
		out[p.ID] = p
	}
	return out
}

// SelectedPaper is one entry of a selection decision.
type SelectedPaper struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
}

// Decision is the ordered list of papers chosen by the selection stage.
type Decision []SelectedPaper

// IDs returns the selected paper IDs in decision order.
func (d Decision) IDs() []string {
	ids := make([]string, len(d))
	for i, sp := range d {
		ids[i] = sp.PaperID
	}
	return ids
}

// SummaryRecord is the LLM-generated synthesis of one paper.
type SummaryRecord struct {
	// Summary is a short synthesis, requested at no more than ~400 characters.
	Summary string `json:"summary" yaml:"summary"`

	// KeyPoint1 and KeyPoint2 are the two innovation points.
	KeyPoint1 string `json:"keypoints_1" yaml:"keypoints_1"`
	KeyPoint2 string `json:"keypoints_2" yaml:"keypoints_2"`
}

// Validate reports whether every field is present.
func (r SummaryRecord) Validate() error {
	switch {
	case r.Summary == "":
		return fmt.Errorf("summary is empty")
	case r.KeyPoint1 == "":
		return fmt.Errorf("keypoints_1 is empty")
	case r.KeyPoint2 == "":
		return fmt.Errorf("keypoints_2 is empty")
	}
	return nil
}
