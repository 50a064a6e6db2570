package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/importer"
	productrepo "storefront/internal/repository/product"
)

var importProductsCmd = &cobra.Command{
	Use:   "import-products",
	Short: "Upsert products by SKU from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := importer.NewCSVImporter(f, productrepo.NewPostgres(pool, logger), logger).Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d products (%d created, %d updated)\n", res.Total(), res.Created, res.Updated)
		return nil
	},
}

func init() {
	importProductsCmd.Flags().StringP("file", "f", "", "CSV file with sku,title,description,price,category,stock,tags,image")
	_ = importProductsCmd.MarkFlagRequired("file")
}
