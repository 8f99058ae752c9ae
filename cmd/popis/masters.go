package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/master"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func mastersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "masters",
		Short: "Manage location and product reference data",
	}
	cmd.AddCommand(mastersImportCmd(a))
	cmd.AddCommand(mastersClearCmd(a))
	cmd.AddCommand(mastersStatusCmd(a))
	return cmd
}

func mastersImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Replace reference data with the CSV files in dir",
		Long: `Replace all reference data with the CSV files in dir.

Expected files:
  locations_buildings.csv  locations_floors.csv  locations_departments.csv
  locations_divisions.csv  locations_rooms.csv   product_categories.csv
  product_subcategories.csv  product_items.csv  product_makers.csv
  product_models.csv

Nothing is changed if any file is missing or malformed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			counts, err := master.ImportDir(cmd.Context(), database, args[0])
			if err != nil {
				return err
			}

			for _, kind := range model.MasterKinds() {
				fmt.Printf("%-12s %6d\n", kind, counts[kind])
			}
			fmt.Println(color.New(color.FgGreen).Sprint("✓"), "reference data imported")
			return nil
		},
	}
}

func mastersClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all reference data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := master.Clear(cmd.Context(), database); err != nil {
				return err
			}
			fmt.Println(color.New(color.FgGreen).Sprint("✓"), "reference data cleared")
			return nil
		},
	}
}

func mastersStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show reference data counts and import time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			counts, err := store.CountMasters(ctx, database)
			if err != nil {
				return err
			}
			stamp, err := store.GetSetting(ctx, database, store.SettingMastersDownloadedAt)
			if err != nil {
				return err
			}

			if stamp == "" {
				fmt.Printf("imported: %s\n", color.New(color.FgYellow).Sprint("never"))
			} else {
				fmt.Printf("imported: %s\n", stamp)
			}
			for _, kind := range model.MasterKinds() {
				n := fmt.Sprintf("%6d", counts[kind])
				if counts[kind] == 0 {
					n = color.New(color.FgYellow).Sprint(n)
				}
				fmt.Printf("%-12s %s\n", kind, n)
			}
			return nil
		},
	}
}
