package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"storefront/internal/pricing"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products from the API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		search, _ := cmd.Flags().GetString("search")
		page, _ := cmd.Flags().GetInt("page")

		res, err := newClient().ListProducts(cmd.Context(), search, page)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tPRICE\tSTOCK")
		for _, p := range res.Products {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Title, pricing.Amount(p.PriceCents).StringFixed(2), p.Stock)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d products)\n",
			res.Pagination.CurrentPage, res.Pagination.TotalPages, res.Pagination.Total)
		return nil
	},
}

func init() {
	productsCmd.Flags().String("search", "", "search term")
	productsCmd.Flags().Int("page", 1, "page number")
}
