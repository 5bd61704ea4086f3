// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history indexes finished runs into a SQLite database so past
// digests can be searched and exported across days and topics. The on-disk
// run artifacts stay the source of truth; the database is rebuilt from them
// and can be deleted at any time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

const defaultMaxResults = 20

// Store manages the history database.
type Store struct {
	db  *sql.DB
	Log zerolog.Logger
}

// Open opens or creates the history database at path and ensures the schema
// exists.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, Log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			category TEXT,
			published TEXT,
			abstract TEXT,
			entry_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			snapshot_path TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			day TEXT NOT NULL,
			file_mod_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS appearances (
			snapshot_path TEXT NOT NULL REFERENCES runs(snapshot_path) ON DELETE CASCADE,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			rank INTEGER,
			PRIMARY KEY (snapshot_path, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appearances_paper_id ON appearances(paper_id)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			paper_id TEXT PRIMARY KEY REFERENCES papers(id),
			summary TEXT NOT NULL,
			keypoints_1 TEXT NOT NULL,
			keypoints_2 TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IndexSummary holds counts from an indexing pass.
type IndexSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of runs processed.
func (s IndexSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// IndexAll indexes every daily snapshot under papersRoot. Runs whose
// artifacts have not changed since the last pass are skipped; a run that
// fails to load is counted and logged without stopping the pass.
func (s *Store) IndexAll(ctx context.Context, papersRoot string) (IndexSummary, error) {
	var snapshots []string
	err := filepath.WalkDir(papersRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		day, ok := workspace.DayOf(path)
		if ok && filepath.Base(path) == day.Format("20060102")+".json" {
			snapshots = append(snapshots, path)
		}
		return nil
	})
	if err != nil {
		return IndexSummary{}, fmt.Errorf("walking %s: %w", papersRoot, err)
	}

	var summary IndexSummary
	for _, path := range snapshots {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		status, err := s.IndexRun(ctx, path)
		if err != nil {
			s.Log.Warn().Err(err).Str("snapshot", path).Msg("indexing failed")
			summary.Failed++
			continue
		}
		switch status {
		case StatusIndexed:
			summary.Indexed++
		case StatusUpdated:
			summary.Updated++
		case StatusSkipped:
			summary.Skipped++
		}
	}

	s.Log.Info().
		Int("indexed", summary.Indexed).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("history index done")
	return summary, nil
}

// Index statuses returned by IndexRun.
const (
	StatusIndexed = "indexed"
	StatusUpdated = "updated"
	StatusSkipped = "skipped"
)

// IndexRun indexes the run rooted at snapshotPath: its papers, the selected
// subset in selection order, and the run's summaries.
func (s *Store) IndexRun(ctx context.Context, snapshotPath string) (string, error) {
	modTime := runModTime(snapshotPath)

	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM runs WHERE snapshot_path = ?`, snapshotPath,
	).Scan(&stored)
	if err == nil && stored == modTime {
		return StatusSkipped, nil
	}
	isUpdate := err == nil

	r, err := report.Load(snapshotPath)
	if err != nil {
		return "", err
	}
	if err := s.indexReport(ctx, snapshotPath, r, modTime); err != nil {
		return "", err
	}
	if isUpdate {
		return StatusUpdated, nil
	}
	return StatusIndexed, nil
}

func (s *Store) indexReport(ctx context.Context, snapshotPath string, r *report.Report, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	day := ""
	if !r.Day.IsZero() {
		day = r.Day.Format(types.DateLayout)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (snapshot_path, topic, day, file_mod_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT(snapshot_path) DO UPDATE SET
			topic=excluded.topic, day=excluded.day, file_mod_time=excluded.file_mod_time`,
		snapshotPath, r.Topic, day, modTime,
	); err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM appearances WHERE snapshot_path = ?`, snapshotPath); err != nil {
		return fmt.Errorf("deleting old appearances: %w", err)
	}

	paperStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, title, authors, category, published, abstract, entry_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, category=excluded.category,
			published=excluded.published, abstract=excluded.abstract, entry_url=excluded.entry_url`)
	if err != nil {
		return fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paperStmt.Close()

	rank := make(map[string]int, len(r.Entries))
	for i, e := range r.Entries {
		rank[e.Paper.ID] = i + 1
	}

	for id, p := range r.Papers {
		if _, err := paperStmt.ExecContext(ctx,
			p.ID, p.Title, p.Authors, p.PrimaryCategory, p.Published, p.Abstract, p.EntryURL,
		); err != nil {
			return fmt.Errorf("upserting paper %s: %w", id, err)
		}
		var rk sql.NullInt64
		if n, ok := rank[id]; ok {
			rk = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO appearances (snapshot_path, paper_id, rank) VALUES (?, ?, ?)`,
			snapshotPath, id, rk,
		); err != nil {
			return fmt.Errorf("inserting appearance %s: %w", id, err)
		}
	}

	for id, rec := range r.Summaries {
		if _, ok := r.Papers[id]; !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summaries (paper_id, summary, keypoints_1, keypoints_2) VALUES (?, ?, ?, ?)
			 ON CONFLICT(paper_id) DO UPDATE SET
				summary=excluded.summary, keypoints_1=excluded.keypoints_1, keypoints_2=excluded.keypoints_2`,
			id, rec.Summary, rec.KeyPoint1, rec.KeyPoint2,
		); err != nil {
			return fmt.Errorf("upserting summary %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// runModTime fingerprints a run's artifacts by their modification times.
// Missing files contribute an empty component.
func runModTime(snapshotPath string) string {
	decision := workspace.DecisionPath(snapshotPath)
	parts := make([]string, 0, 3)
	for _, p := range []string{snapshotPath, decision, workspace.SummaryPath(decision)} {
		info, err := os.Stat(p)
		if err != nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, info.ModTime().UTC().Format(time.RFC3339Nano))
	}
	return strings.Join(parts, "|")
}
