package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/view"
)

func newProductsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalogue",
	}
	cmd.AddCommand(newProductsListCmd(c), newLowStockCmd(c))
	return cmd
}

func newProductsListCmd(c *cli) *cobra.Command {
	var (
		search   string
		category int64
		page     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			if page < 1 {
				page = 1
			}
			res, err := c.client.ListProducts(cmd.Context(), api.ProductFilter{
				Page:       page - 1,
				Size:       api.DefaultPageSize,
				Search:     search,
				CategoryID: category,
			})
			if err != nil {
				return c.explain(err)
			}
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), res)
			}
			c.productTable(cmd, res.Content)
			fmt.Fprintf(cmd.OutOrStdout(), "Trang %d / %d, %d sản phẩm\n", res.Number+1, max(res.TotalPages, 1), res.TotalElements)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "name or SKU contains")
	cmd.Flags().Int64Var(&category, "category", 0, "category id")
	cmd.Flags().IntVar(&page, "page", 1, "page number, from 1")
	return cmd
}

func newLowStockCmd(c *cli) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List products at or below the stock threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			if threshold <= 0 {
				threshold = c.cfg.LowStockThreshold
			}
			items, err := c.client.LowStockProducts(cmd.Context(), threshold)
			if err != nil {
				return c.explain(err)
			}
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), items)
			}
			if len(items) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Không có sản phẩm nào có tồn kho ≤ %d\n", threshold)
				return nil
			}
			c.productTable(cmd, items)
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "stock threshold (default: LOW_STOCK_THRESHOLD)")
	return cmd
}

func (c *cli) productTable(cmd *cobra.Command, items []api.Product) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tTÊN\tDANH MỤC\tGIÁ\tTỒN")
	for _, p := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", p.ID, p.SKU, p.Name, p.CategoryName, view.FormatMoney(p.Price), p.StockQuantity)
	}
	_ = tw.Flush()
}
