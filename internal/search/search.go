// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search is the paper-search client. It queries the arXiv API by
// boolean query string or by identifier and returns normalized paper
// metadata.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// FormatTable writes papers as a human-readable table to w.
func FormatTable(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-56s  %-20s  %-10s  %s\n",
		"Rank", "ID", "Title", "Authors", "Published", "Category")
	fmt.Fprintln(w, strings.Repeat("-", 124))

	for i, p := range papers {
		fmt.Fprintf(w, "%-4d  %-16s  %-56s  %-20s  %-10s  %s\n",
			i+1, p.ID, truncate(p.Title, 56), formatAuthors(p.Authors), p.Published, p.PrimaryCategory)
	}
	fmt.Fprintf(w, "\n%d results\n", len(papers))
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(papers []types.Paper, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(papers)
}

func formatAuthors(joined string) string {
	authors := strings.Split(joined, ", ")
	switch {
	case joined == "":
		return ""
	case len(authors) == 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
