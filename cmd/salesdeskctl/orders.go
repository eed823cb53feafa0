package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/cart"
	"github.com/salesdesk/salesdesk/internal/view"
)

var orderRoles = []string{api.RoleAdmin, api.RoleSalesStaff}

func newOrdersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List, show and create orders",
	}
	cmd.AddCommand(newOrdersListCmd(c), newOrdersShowCmd(c), newOrdersCreateCmd(c))
	return cmd
}

func newOrdersListCmd(c *cli) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireRole(orderRoles...); err != nil {
				return err
			}
			if page < 1 {
				page = 1
			}
			res, err := c.client.ListOrders(cmd.Context(), page-1, api.DefaultPageSize)
			if err != nil {
				return c.explain(err)
			}
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), res)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNGÀY\tKHÁCH HÀNG\tSĐT\tTỔNG TIỀN\tTRẠNG THÁI")
			for _, o := range res.Content {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", o.ID, o.OrderDate.Format("02/01/2006 15:04"),
					o.CustomerName, o.CustomerPhone, view.FormatMoney(o.TotalAmount), view.StatusLabel(o.Status))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, from 1")
	return cmd
}

func newOrdersShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one order with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireRole(orderRoles...); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			order, err := c.client.GetOrder(cmd.Context(), id)
			if err != nil {
				return c.explain(err)
			}
			if c.output == "json" {
				return c.printJSON(cmd.OutOrStdout(), order)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Đơn hàng #%d  %s\n", order.ID, view.StatusLabel(order.Status))
			fmt.Fprintf(out, "Khách hàng: %s (%s)\n", order.CustomerName, order.CustomerPhone)
			fmt.Fprintf(out, "Nhân viên: %s\n", order.UserName)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SKU\tSẢN PHẨM\tĐƠN GIÁ\tSL\tTHÀNH TIỀN")
			for _, d := range order.OrderDetails {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ProductSKU, d.ProductName,
					view.FormatMoney(d.PriceAtPurchase), d.Quantity, view.FormatMoney(d.PriceAtPurchase*float64(d.Quantity)))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Tổng tiền: %s\n", view.FormatMoney(order.TotalAmount))
			return nil
		},
	}
}

// orderItem is one --item PRODUCT_ID:QTY flag.
type orderItem struct {
	productID int64
	quantity  int
}

func parseOrderItem(raw string) (orderItem, error) {
	idPart, qtyPart, found := strings.Cut(raw, ":")
	if !found {
		qtyPart = "1"
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil || id <= 0 {
		return orderItem{}, fmt.Errorf("invalid item %q: want PRODUCT_ID:QTY", raw)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
	if err != nil || qty <= 0 {
		return orderItem{}, fmt.Errorf("invalid quantity in %q", raw)
	}
	return orderItem{productID: id, quantity: qty}, nil
}

func newOrdersCreateCmd(c *cli) *cobra.Command {
	var (
		phone string
		raw   []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an order for a customer",
		Example: "  salesdeskctl orders create --customer-phone 0901234567 --item 7:2 --item 9:1",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireRole(orderRoles...); err != nil {
				return err
			}
			if strings.TrimSpace(phone) == "" || len(raw) == 0 {
				return errors.New(cart.MsgMissingSelection)
			}
			items := make([]orderItem, 0, len(raw))
			for _, r := range raw {
				item, err := parseOrderItem(r)
				if err != nil {
					return err
				}
				items = append(items, item)
			}
			ctx := cmd.Context()

			customers, err := c.client.SearchCustomers(ctx, strings.TrimSpace(phone))
			if err != nil {
				return c.explain(err)
			}
			customer, ok := pickCustomer(customers, strings.TrimSpace(phone))
			if !ok {
				return fmt.Errorf("no customer with phone %s", phone)
			}

			order := cart.New()
			buyer := cart.CustomerFromAPI(customer)
			order.SetCustomer(&buyer)
			for _, item := range items {
				product, err := c.client.GetProduct(ctx, item.productID)
				if err != nil {
					return c.explain(err)
				}
				if order.AddProduct(cart.ProductFromAPI(product)) == cart.OutOfStock {
					return fmt.Errorf("%s đã hết hàng", product.Name)
				}
				if item.quantity > product.StockQuantity {
					c.logger.Warn("quantity capped at stock",
						slog.String("product", product.Name),
						slog.Int("requested", item.quantity),
						slog.Int("stock", product.StockQuantity))
				}
				order.UpdateQuantity(product.ID, item.quantity)
			}

			snap := order.Snapshot()
			id, err := order.Submit(ctx, c.client)
			if err != nil {
				if errors.Is(err, cart.ErrIncomplete) {
					return errors.New(cart.MsgMissingSelection)
				}
				return c.explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tạo đơn hàng #%d cho %s: %d sản phẩm, %s\n",
				id, customer.FullName, snap.TotalQuantity, view.FormatMoney(snap.TotalAmount))
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "customer-phone", "", "phone number of an existing customer")
	cmd.Flags().StringArrayVar(&raw, "item", nil, "PRODUCT_ID:QTY, repeatable")
	return cmd
}

// pickCustomer prefers an exact phone match over the first search hit.
func pickCustomer(list []api.Customer, phone string) (api.Customer, bool) {
	for _, cust := range list {
		if cust.PhoneNumber == phone {
			return cust, true
		}
	}
	if len(list) > 0 {
		return list[0], true
	}
	return api.Customer{}, false
}
