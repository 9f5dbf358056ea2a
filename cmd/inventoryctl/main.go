package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "inventoryctl",
	Short:         "Operate the inventory ledger from the command line",
	Long:          "inventoryctl talks directly to the inventory database. It imports products, reads stock and records adjustments with the same checks the HTTP API applies.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&publishEvents, "publish", true, "publish inventory events to Kafka")

	// Database
	rootCmd.AddCommand(schemaCmd)

	// Catalog
	rootCmd.AddCommand(importCmd)

	// Ledger
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(adjustCmd)
}
