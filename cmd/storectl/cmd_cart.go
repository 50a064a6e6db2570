package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"storefront/internal/cart"
	"storefront/internal/pricing"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the local shopping cart",
}

func openCart() (*cart.Cart, error) {
	return cart.Open(cart.NewFileStore(cfg.CartFile))
}

var cartAddCmd = &cobra.Command{
	Use:   "add <productId> [quantity]",
	Short: "Add a product to the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			qty = n
		}

		c, err := openCart()
		if err != nil {
			return err
		}
		p, err := newClient().GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := c.Add(*p, qty); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d x %s\n", qty, p.Title)
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <productId> <quantity>",
	Short: "Set the quantity of a cart line; 0 removes it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		c, err := openCart()
		if err != nil {
			return err
		}
		if err := c.UpdateQuantity(args[0], qty); err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <productId>",
	Short: "Remove a product from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCart()
		if err != nil {
			return err
		}
		if err := c.Remove(args[0]); err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print cart contents and totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCart()
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCart()
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
		return nil
	},
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Create a payment session for the cart",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")

		c, err := openCart()
		if err != nil {
			return err
		}
		if c.Count() == 0 {
			return fmt.Errorf("cart is empty")
		}

		session, err := newClient().CreateCheckoutSession(cmd.Context(), c.CheckoutItems(), email, name)
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total %s\ncomplete payment at %s\n", session.Total.StringFixed(2), session.URL)
		return nil
	},
}

func printCart(out io.Writer, c *cart.Cart) error {
	items := c.Items()
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "cart is empty")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tPRICE\tLINE")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.ProductID, it.Title, it.Quantity,
			pricing.Amount(it.UnitPriceCents).StringFixed(2), pricing.Amount(it.LineTotalCents()).StringFixed(2))
	}
	q := c.Totals()
	fmt.Fprintf(w, "\t\t\tSubtotal\t%s\n", pricing.Amount(q.SubtotalCents).StringFixed(2))
	fmt.Fprintf(w, "\t\t\tTax\t%s\n", pricing.Amount(q.TaxCents).StringFixed(2))
	fmt.Fprintf(w, "\t\t\tShipping\t%s\n", pricing.Amount(q.ShippingCents).StringFixed(2))
	fmt.Fprintf(w, "\t\t\tTotal\t%s\n", pricing.Amount(q.TotalCents).StringFixed(2))
	return w.Flush()
}

func init() {
	cartCheckoutCmd.Flags().String("email", "", "customer email")
	cartCheckoutCmd.Flags().String("name", "", "customer name")
	_ = cartCheckoutCmd.MarkFlagRequired("email")
	_ = cartCheckoutCmd.MarkFlagRequired("name")

	cartCmd.AddCommand(cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartShowCmd, cartClearCmd, cartCheckoutCmd)
}
