// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/travel-recommender/internal/destination"
	"github.com/pdiddy/travel-recommender/internal/store"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

var destinationsCmd = &cobra.Command{
	Use:   "destinations",
	Short: "Manage the destination table (load, query, show, export)",
	Long: `Destinations manages the local SQLite table of destinations. Load reads
the semicolon-delimited dataset, query filters it, export writes it out.`,
}

// --- load subcommand ---

var destinationsLoadCmd = &cobra.Command{
	Use:   "load [csv]",
	Short: "Load destinations from a CSV file",
	Long: `Load normalises every row of the dataset and writes the batch in one
transaction. Rows without an identifier are skipped; any other invalid row
aborts the whole batch. --mode replace clears the table first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDestinationsLoad,
}

func runDestinationsLoad(cmd *cobra.Command, args []string) error {
	cfg, logger, err := mustConfig()
	if err != nil {
		return err
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := store.ParseLoadMode(modeFlag)
	if err != nil {
		return err
	}
	path := cfg.Index.SourceCSV
	if len(args) == 1 {
		path = args[0]
	}

	records, err := destination.LoadCSV(path, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.BulkLoad(ctx, records, mode)
	if err != nil {
		return err
	}
	total, err := st.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d destinations from %s (%s), %d in store\n", n, path, mode, total)
	return nil
}

// --- query subcommand ---

var destinationsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query destinations with structured filters",
	Long: `Query returns destinations matching every --where condition. A condition
is <field><op><value> with op one of = != < <= > >= or ~ (substring), e.g.
--where parent_region=Europe --where cost_per_week<1000 --where description~food.`,
	RunE: runDestinationsQuery,
}

func runDestinationsQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := mustConfig()
	if err != nil {
		return err
	}
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	format, _ := cmd.Flags().GetString("format")
	if format != "table" {
		_, err := st.Export(ctx, q, store.ExportFormat(format), cmd.OutOrStdout())
		return err
	}

	records, err := st.Query(ctx, q)
	if err != nil {
		return err
	}
	printDestinations(cmd.OutOrStdout(), records)
	return nil
}

func queryFromFlags(cmd *cobra.Command) (store.Query, error) {
	var q store.Query
	wheres, _ := cmd.Flags().GetStringArray("where")
	for _, w := range wheres {
		c, err := store.ParseCondition(w)
		if err != nil {
			return q, err
		}
		q.Conditions = append(q.Conditions, c)
	}
	q.OrderBy, _ = cmd.Flags().GetString("order-by")
	q.Descending, _ = cmd.Flags().GetBool("desc")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	return q, nil
}

func printDestinations(w io.Writer, records []types.DestinationRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No destinations found.")
		return
	}
	fmt.Fprintf(w, "%-10s  %-24s  %-16s  %10s  %10s\n", "ID", "Region", "Parent", "Cost/week", "Popularity")
	for _, r := range records {
		fmt.Fprintf(w, "%-10s  %-24s  %-16s  %10.0f  %10.2f\n",
			truncate(r.ID, 10), truncate(r.Region, 24), truncate(r.ParentRegion, 16), r.CostPerWeek, r.Popularity)
	}
	fmt.Fprintf(w, "\n%d destinations\n", len(records))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// --- show subcommand ---

var destinationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one destination as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := mustConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		return showDestination(ctx, st, args[0], cmd.OutOrStdout())
	},
}

func showDestination(ctx context.Context, st *store.Store, id string, w io.Writer) error {
	rec, err := st.Get(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no destination with id %q", id)
	}
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding %s: %w", id, err)
	}
	return enc.Close()
}

// --- export subcommand ---

var destinationsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export destinations to YAML, JSON or CSV",
	Long: `Export writes the destination table (or the subset matching --where) to
--out, or to stdout when --out is empty. CSV output uses the dataset layout
so it can be loaded again.`,
	RunE: runDestinationsExport,
}

func runDestinationsExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := mustConfig()
	if err != nil {
		return err
	}
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	var n int
	if format == "csv" {
		if q.OrderBy == "" {
			q.OrderBy = "id"
		}
		records, err := st.Query(ctx, q)
		if err != nil {
			return err
		}
		if err := destination.WriteCSV(w, records); err != nil {
			return err
		}
		n = len(records)
	} else {
		n, err = st.Export(ctx, q, store.ExportFormat(format), w)
		if err != nil {
			return err
		}
	}

	if out != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d destinations to %s\n", n, out)
	}
	return nil
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("where", nil, "filter condition <field><op><value>, repeatable")
	cmd.Flags().String("order-by", "", "order by field")
	cmd.Flags().Bool("desc", false, "descending order")
	cmd.Flags().Int("limit", 0, "maximum number of rows (0 for all)")
}

func init() {
	destinationsLoadCmd.Flags().String("mode", string(store.ModeAppend), "load mode: append or replace")

	addQueryFlags(destinationsQueryCmd)
	destinationsQueryCmd.Flags().String("format", "table", "output format: table, yaml or json")

	addQueryFlags(destinationsExportCmd)
	destinationsExportCmd.Flags().String("format", "yaml", "output format: yaml, json or csv")
	destinationsExportCmd.Flags().String("out", "", "output file (default stdout)")

	destinationsCmd.AddCommand(destinationsLoadCmd)
	destinationsCmd.AddCommand(destinationsQueryCmd)
	destinationsCmd.AddCommand(destinationsShowCmd)
	destinationsCmd.AddCommand(destinationsExportCmd)
	rootCmd.AddCommand(destinationsCmd)
}
