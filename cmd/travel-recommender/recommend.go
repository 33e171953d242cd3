// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/travel-recommender/pkg/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <query>",
	Short: "Recommend destinations for a free-text travel request",
	Long: `Recommend runs one request through the pipeline: preference extraction,
routing, similarity retrieval and logistics ranking. Requests with no
recognisable preference return status no_preferences without ranking.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := mustConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		app, err := buildPipeline(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		state := app.controller.Run(ctx, joinArgs(args))

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := printResponse(cmd.OutOrStdout(), state.Response, jsonOutput); err != nil {
			return err
		}
		if state.Status == types.StatusError {
			return fmt.Errorf("recommendation failed: %w", state.Err)
		}
		return nil
	},
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func printResponse(w io.Writer, resp *types.RecommendationResponse, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(w, resp.Message)
	if len(resp.Recommendations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-4s  %-10s  %-24s  %-16s  %8s  %8s\n", "Rank", "ID", "Region", "Parent", "Score", "Similar")
	for i, c := range resp.Recommendations {
		d := c.Destination
		fmt.Fprintf(w, "%-4d  %-10s  %-24s  %-16s  %8.4f  %8.4f\n",
			i+1, truncate(d.ID, 10), truncate(d.Region, 24), truncate(d.ParentRegion, 16), c.Score(), c.EmbeddingScore)
	}
	return nil
}

func init() {
	recommendCmd.Flags().Bool("json", false, "output the response as JSON")
	recommendCmd.Flags().Int("max", 0, "maximum number of recommendations (overrides pipeline.max_recommendations)")
	_ = viper.BindPFlag("pipeline.max_recommendations", recommendCmd.Flags().Lookup("max"))

	rootCmd.AddCommand(recommendCmd)
}
