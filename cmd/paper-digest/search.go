// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/query"
	"github.com/pdiddy/paper-digest/internal/search"
	"github.com/pdiddy/paper-digest/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Snapshot today's results, or run an ad-hoc arXiv query",
	Long: `Without arguments, search compiles the configured keyword groups and
writes today's snapshot (or reuses it if it exists). With a query argument it
runs that query against arXiv and prints the results without writing
anything, which is useful for tuning keywords.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max", 0, "max results per query (default: max_results_per_query)")
	searchCmd.Flags().Bool("json", false, "print ad-hoc results as JSON")
	searchCmd.Flags().Bool("queries", false, "print the compiled queries and exit")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	maxResults, _ := cmd.Flags().GetInt("max")
	if maxResults <= 0 {
		maxResults = cfg.MaxResultsPerQuery
	}
	client := search.NewArxivClient(cfg.HTTP, logger)

	if len(args) > 0 {
		papers, err := client.Search(ctx, strings.Join(args, " "), maxResults)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return search.FormatJSON(papers, os.Stdout)
		}
		search.FormatTable(papers, os.Stdout)
		return nil
	}

	queries, err := query.Compile(cfg.Keyword)
	if err != nil {
		return err
	}
	queries = query.NonEmpty(queries)
	if only, _ := cmd.Flags().GetBool("queries"); only {
		for _, q := range queries {
			fmt.Println(q)
		}
		return nil
	}

	st := &store.Store{Searcher: client, Layout: layout(), Log: logger}
	path, err := st.FetchAndSnapshot(ctx, cfg.Topic, queries, maxResults)
	if err != nil {
		return err
	}
	fmt.Println(success(path))
	return nil
}
