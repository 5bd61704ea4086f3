// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for history queries.
type QueryOptions struct {
	// Query matches case-insensitively against title, abstract, and summary.
	Query string

	// Topic filters by run topic.
	Topic string

	// Since keeps runs on or after this YYYY-MM-DD day.
	Since string

	// SelectedOnly keeps papers that were selected in at least one
	// matching run.
	SelectedOnly bool

	// MaxResults limits result count. Zero uses the default.
	MaxResults int
}

// Result is one paper with where it appeared and its summary, if any.
type Result struct {
	PaperID   string `json:"paper_id" yaml:"paper_id"`
	Title     string `json:"paper_title" yaml:"paper_title"`
	Authors   string `json:"paper_authors" yaml:"paper_authors"`
	Category  string `json:"paper_primary_category" yaml:"paper_primary_category"`
	Published string `json:"paper_published_time" yaml:"paper_published_time"`
	EntryURL  string `json:"paper_entry_id" yaml:"paper_entry_id"`

	// Topic and Day are the most recent matching run.
	Topic string `json:"topic" yaml:"topic"`
	Day   string `json:"day" yaml:"day"`

	// Selected reports whether any indexed run selected the paper.
	Selected  bool   `json:"selected" yaml:"selected"`
	Summary   string `json:"summary,omitempty" yaml:"summary,omitempty"`
	KeyPoint1 string `json:"keypoints_1,omitempty" yaml:"keypoints_1,omitempty"`
	KeyPoint2 string `json:"keypoints_2,omitempty" yaml:"keypoints_2,omitempty"`
}

// Search returns indexed papers matching opts, newest run first.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT p.id, p.title, p.authors, p.category, p.published, p.entry_url,
			MAX(r.day), r.topic,
			EXISTS (SELECT 1 FROM appearances sel WHERE sel.paper_id = p.id AND sel.rank IS NOT NULL),
			s.summary, s.keypoints_1, s.keypoints_2
		FROM papers p
		JOIN appearances a ON a.paper_id = p.id
		JOIN runs r ON r.snapshot_path = a.snapshot_path
		LEFT JOIN summaries s ON s.paper_id = p.id
		WHERE 1=1`)

	if opts.Query != "" {
		like := "%" + strings.ToLower(opts.Query) + "%"
		qb.WriteString(` AND (lower(p.title) LIKE ? OR lower(p.abstract) LIKE ? OR lower(coalesce(s.summary, '')) LIKE ?)`)
		args = append(args, like, like, like)
	}
	if opts.Topic != "" {
		qb.WriteString(` AND r.topic = ?`)
		args = append(args, opts.Topic)
	}
	if opts.Since != "" {
		qb.WriteString(` AND r.day >= ?`)
		args = append(args, opts.Since)
	}
	if opts.SelectedOnly {
		qb.WriteString(` AND a.rank IS NOT NULL`)
	}

	qb.WriteString(` GROUP BY p.id ORDER BY MAX(r.day) DESC, p.id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r                   Result
			selected            int
			summary, kp1, kp2   sql.NullString
			title, authors, cat sql.NullString
			published, entry    sql.NullString
		)
		if err := rows.Scan(&r.PaperID, &title, &authors, &cat, &published, &entry,
			&r.Day, &r.Topic, &selected, &summary, &kp1, &kp2); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		r.Title, r.Authors, r.Category = title.String, authors.String, cat.String
		r.Published, r.EntryURL = published.String, entry.String
		r.Selected = selected != 0
		r.Summary, r.KeyPoint1, r.KeyPoint2 = summary.String, kp1.String, kp2.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return results, nil
}
