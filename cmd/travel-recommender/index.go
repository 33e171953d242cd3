// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and search the similarity index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [csv]",
	Short: "Embed every destination and persist the index",
	Long: `Build reads the dataset, embeds one document per destination and
replaces the index under the configured directory. The destination table
is not touched; load it separately with "destinations load".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := mustConfig()
		if err != nil {
			return err
		}
		path := cfg.Index.SourceCSV
		if len(args) == 1 {
			path = args[0]
		}
		ix, err := openIndex(cfg, logger)
		if err != nil {
			return err
		}
		n, err := ix.Build(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d destinations from %s into %s\n", n, path, cfg.Index.Dir)
		return nil
	},
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the destinations most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := mustConfig()
		if err != nil {
			return err
		}
		k, _ := cmd.Flags().GetInt("k")
		ix, err := openIndex(cfg, logger)
		if err != nil {
			return err
		}
		hits, err := ix.Search(cmd.Context(), joinArgs(args), k)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-4s  %-10s  %-24s  %8s\n", "Rank", "ID", "Region", "Score")
		for i, h := range hits {
			fmt.Fprintf(w, "%-4d  %-10s  %-24s  %8.4f\n", i+1, truncate(h.ID, 10), truncate(h.Destination.Region, 24), h.Score)
		}
		return nil
	},
}

func init() {
	indexSearchCmd.Flags().Int("k", 5, "number of results (0 for all)")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexSearchCmd)
	rootCmd.AddCommand(indexCmd)
}
