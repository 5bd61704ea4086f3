// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace owns the on-disk layout of the pipeline and the
// read/write helpers for every persisted artifact:
//
//	<root>/paper/<YYYYMMDD>/<YYYYMMDD>.json               snapshot
//	<root>/paper/<YYYYMMDD>/<YYYYMMDD>_judge_result.json  selection decision
//	<root>/paper/<YYYYMMDD>/<paper_id>.pdf                document blob
//	<root>/paper/<YYYYMMDD>/<YYYYMMDD>_summary.json       per-run summaries
//	<root>/paper/total_summary.json                       global summary cache
//
// Artifacts are the source of truth between stages; a stage skips work
// whose artifact already exists.
package workspace

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	papersDir      = "paper"
	dayLayout      = "20060102"
	snapshotExt    = ".json"
	decisionSuffix = "_judge_result.json"
	summarySuffix  = "_summary.json"
	documentExt    = ".pdf"
	cacheFile      = "total_summary.json"
	markdownDir    = "markdown"
	historyDB      = "history.db"
)

// Layout derives artifact paths from the configured root directory.
type Layout struct {
	Root string
}

// PapersRoot returns <root>/paper, the directory holding daily directories
// and the global cache.
func (l Layout) PapersRoot() string {
	return filepath.Join(l.Root, papersDir)
}

// DailyDir returns the directory for the calendar day of t.
func (l Layout) DailyDir(t time.Time) string {
	return filepath.Join(l.PapersRoot(), t.Format(dayLayout))
}

// SnapshotPath returns the day's snapshot path. It depends only on the date,
// not on topic or query content.
func (l Layout) SnapshotPath(t time.Time) string {
	return filepath.Join(l.DailyDir(t), t.Format(dayLayout)+snapshotExt)
}

// CachePath returns the global summary cache path.
func (l Layout) CachePath() string {
	return CachePath(l.PapersRoot())
}

// MarkdownDir returns the default directory for locally extracted text.
func (l Layout) MarkdownDir() string {
	return filepath.Join(l.PapersRoot(), markdownDir)
}

// HistoryPath returns the default history index database path.
func (l Layout) HistoryPath() string {
	return filepath.Join(l.PapersRoot(), historyDB)
}

// CachePath returns the global summary cache path under papersRoot.
func CachePath(papersRoot string) string {
	return filepath.Join(papersRoot, cacheFile)
}

// DecisionPath returns the selection decision path for a snapshot.
func DecisionPath(snapshotPath string) string {
	return strings.TrimSuffix(snapshotPath, snapshotExt) + decisionSuffix
}

// SummaryPath returns the per-run summary path for a decision.
func SummaryPath(decisionPath string) string {
	return strings.TrimSuffix(decisionPath, decisionSuffix) + summarySuffix
}

// DocumentName returns the document file name for a paper ID. Old-style
// arXiv IDs contain a slash ("hep-th/9901001v1"), which is flattened so the
// document stays inside the daily directory.
func DocumentName(paperID string) string {
	return strings.ReplaceAll(paperID, "/", "_") + documentExt
}

// DocumentPath returns the deterministic document path for a paper ID.
func DocumentPath(dir, paperID string) string {
	return filepath.Join(dir, DocumentName(paperID))
}

// DayOf returns the date encoded in a snapshot, decision, or summary file
// name. ok is false when the name carries no date.
func DayOf(path string) (t time.Time, ok bool) {
	base := filepath.Base(path)
	if len(base) < len(dayLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dayLayout, base[:len(dayLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
