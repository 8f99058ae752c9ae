package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/popis/internal/history"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func historyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage completed survey entries",
	}
	cmd.AddCommand(historyListCmd(a))
	cmd.AddCommand(historyDuplicateCmd(a))
	cmd.AddCommand(historyPurgeCmd(a))
	return cmd
}

// historyEntry is the export shape of a completed draft.
type historyEntry struct {
	ID          string         `yaml:"id"`
	Code        string         `yaml:"code,omitempty"`
	CompletedAt string         `yaml:"completed_at,omitempty"`
	Photos      int            `yaml:"photos"`
	Fields      map[string]any `yaml:"fields"`
}

func toEntry(d *model.Draft) historyEntry {
	e := historyEntry{
		ID:     d.ID,
		Code:   d.Code(),
		Photos: len(d.PhotoIDs),
		Fields: d.Fields,
	}
	if at, ok := d.CompletedAt(); ok {
		e.CompletedAt = time.UnixMilli(at).UTC().Format(time.RFC3339)
	}
	return e
}

func historyListCmd(a *app) *cobra.Command {
	var (
		order    string
		format   string
		category string
		building string
		text     string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List completed entries",
		Example: `  popis history list --order desc --limit 10
  popis history list --format yaml > export.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want table or yaml)", format)
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			svc := history.New(store.New(database), nil)
			drafts, err := svc.List(cmd.Context(), history.Query{
				Order:      store.ParseOrder(order),
				CategoryID: category,
				BuildingID: building,
				Text:       text,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			entries := make([]historyEntry, len(drafts))
			for i := range drafts {
				entries[i] = toEntry(&drafts[i])
			}

			if format == "yaml" {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No completed entries.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCODE\tCOMPLETED\tPHOTOS")
			for _, e := range entries {
				code := e.Code
				if code == "" {
					code = color.New(color.FgYellow).Sprint("-")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.ID, code, e.CompletedAt, e.Photos)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&order, "order", "asc", "sort by update time: asc or desc")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or yaml")
	cmd.Flags().StringVar(&category, "category", "", "only entries with this category id")
	cmd.Flags().StringVar(&building, "building", "", "only entries with this building id")
	cmd.Flags().StringVarP(&text, "query", "q", "", "match code or names")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of entries (0 = all)")
	return cmd
}

func historyDuplicateCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Create completed copies of an entry with incrementing codes",
		Long: `Create completed copies of an entry. Each copy gets the entry's code with
its last number incremented (SEAL-0099 -> SEAL-0100, SEAL-0101, ...) and its
own copies of the entry's photos. Either all copies are created or none.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > a.cfg.MaxDuplicates {
				return fmt.Errorf("count must be between 1 and %d", a.cfg.MaxDuplicates)
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := a.newEngine(database).DuplicateDraft(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			fmt.Printf("%s created %d copies\n", color.New(color.FgGreen).Sprint("✓"), n)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 1, "number of copies")
	return cmd
}

func historyPurgeCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all completed entries and their photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge deletes every completed entry; rerun with --yes to confirm")
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := a.newEngine(database).PurgeCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s purged %d entries\n", color.New(color.FgGreen).Sprint("✓"), n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
