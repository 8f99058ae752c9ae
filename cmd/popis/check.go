package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/store"
)

func checkCmd(a *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the database schema and draft/photo integrity",
		Long: `Verify that the schema is current, that every photo a draft references
exists and belongs to it, that no photo is orphaned, and that stored photo
checksums match their data.

Examples:
  popis check            # print a report
  popis check --quiet    # exit code only (0=healthy, 1=issues)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			version, err := db.SchemaVersion(database)
			if err != nil {
				return err
			}
			problems, err := store.CheckIntegrity(cmd.Context(), database)
			if err != nil {
				return err
			}

			ok := color.New(color.FgGreen).Sprint("✓")
			bad := color.New(color.FgRed).Sprint("✗")

			if !quiet {
				status := ok
				if version != db.Version() {
					status = bad
				}
				fmt.Printf("%s schema version %d (want %d)\n", status, version, db.Version())

				if len(problems) == 0 {
					fmt.Printf("%s drafts and photos consistent\n", ok)
				}
				for _, p := range problems {
					fmt.Printf("%s %s\n", bad, p)
				}
			}

			if version != db.Version() || len(problems) > 0 {
				return fmt.Errorf("integrity check failed: %d problems", len(problems))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "exit code only")
	return cmd
}
