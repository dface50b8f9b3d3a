package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/nam-ha/human-detection-app/internal/config"
	"github.com/nam-ha/human-detection-app/internal/export"
	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/nam-ha/human-detection-app/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored predictions",
		Long:  `Reads the prediction history straight from the database configured in the environment.`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryExportCmd())

	return cmd
}

func openStore(cmd *cobra.Command) (*storage.HistoryStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return storage.Open(cmd.Context(), cfg.DSN())
}

func newHistoryListCmd() *cobra.Command {
	var flags historyFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of predictions",
		Example: `  humandetect history list
  humandetect history list --num-humans-min 2 --page-size 20
  humandetect history list --time-min 2024-05-01_00-00-00 --time-max 2024-05-02_00-00-00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.parse()
			if err != nil {
				return err
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			records, total, err := store.Query(cmd.Context(), q)
			if err != nil {
				return err
			}

			entries := make([]models.HistoryEntry, len(records))
			for i, rec := range records {
				entries[i] = rec.Entry()
			}
			printEntries(entries)
			fmt.Printf("\nShowing %d of %d (page %d, size %d)\n", len(entries), total, q.PageIndex, q.PageSize)
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var flags historyFlags
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every matching prediction to a file",
		Example: `  humandetect history export --format parquet --output history.parquet
  humandetect history export --format yaml --output crowded.yaml --num-humans-min 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.parse()
			if err != nil {
				return err
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.All(cmd.Context(), q)
			if err != nil {
				return err
			}

			entries := make([]models.HistoryEntry, len(records))
			for i, rec := range records {
				entries[i] = rec.Entry()
			}

			if err := export.WriteFile(output, format, entries); err != nil {
				return err
			}
			slog.Info("History exported", "path", output, "format", format, "records", len(entries))
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatParquet, "Export format: parquet, yaml or jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func printEntries(entries []models.HistoryEntry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUERY ID\tTIME\tHUMANS\tQUERY IMAGE\tRESULT IMAGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", e.QueryID, e.Time, e.NumHumans, e.QueryImageFile, e.ResultImageFile)
	}
	w.Flush()
}
