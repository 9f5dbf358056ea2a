package main

import (
	"fmt"

	"inventory-service/config"
	"inventory-service/internal/store"

	"github.com/spf13/cobra"
)

// inventoryctl schema
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the products and adjustment tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Schema is up to date")
		return nil
	},
}

// inventoryctl import
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import products from the configured product source",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Importing products from %s…\n", a.cfg.Business.ImportURL)
		result, err := a.products.Import(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d inserted, %d skipped\n", result.Message, result.Inserted, result.Skipped)
		for _, sku := range result.SkippedSKUs {
			fmt.Printf("  skipped %s\n", sku)
		}
		return nil
	},
}
