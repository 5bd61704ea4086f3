// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/internal/query"
	"github.com/pdiddy/paper-digest/internal/workspace"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter paper-digest.yaml",
	Long: `Init writes a paper-digest.yaml in the current directory with every
setting at its default and one example keyword group. An existing file is
left untouched unless --force is given. API keys belong in .secrets/, not in
the config file.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("out", "paper-digest.yaml", "file to write")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func starterConfig() types.DigestConfig {
	c := types.DigestConfig{
		SelectedDays:       []string{"mon", "wed", "fri"},
		DailyTime:          []int{8, 30},
		Topic:              "Green Building",
		MaxResultsPerQuery: 5,
		JudgeNumber:        2,
		Keyword: map[string]string{
			query.Key(0, 0): "low carbon",
			query.Key(0, 1): "building",
			query.Key(0, 2): "",
			query.Key(0, 3): "",
		},
	}
	c.ApplyDefaults()
	return c
}

func runInit(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")
	if workspace.Exists(out) && !force {
		return fmt.Errorf("%s exists; use --force to overwrite", out)
	}

	data, err := yaml.Marshal(starterConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := workspace.WriteFileAtomic(out, data, 0o644); err != nil {
		return err
	}
	fmt.Println(success(out))
	return nil
}
