package main

import (
	"fmt"
	"strconv"

	"inventory-service/internal/service"

	"github.com/spf13/cobra"
)

// inventoryctl stock <sku>
var stockCmd = &cobra.Command{
	Use:   "stock <sku>",
	Short: "Print the current stock of a SKU",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		product, err := a.products.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\t%s\tstock=%d\tprice=%s\n", product.SKU, product.Title, product.Stock, product.Price.StringFixed(2))
		return nil
	},
}

// inventoryctl adjust <sku> <qty>
var adjustCmd = &cobra.Command{
	Use:   "adjust <sku> <qty>",
	Short: "Record a stock adjustment; negative qty removes stock",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid qty %q: %w", args[1], err)
		}

		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		adj, err := a.ledger.Create(cmd.Context(), args[0], qty)
		if nse, ok := service.IsNegativeStock(err); ok {
			return fmt.Errorf("rejected: stock of %s is %d, cannot apply %d", nse.SKU, nse.CurrentStock, nse.RequestedQty)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Recorded adjustment #%d: %s %+d (amount %s)\n", adj.ID, adj.SKU, adj.Qty, adj.Amount.StringFixed(2))
		return nil
	},
}
