package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

// NewOrdersCommand groups the order subcommands.
func NewOrdersCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders and change their status",
	}
	cmd.AddCommand(newOrdersListCommand(root))
	cmd.AddCommand(newOrdersSetStatusCommand(root))
	return cmd
}

func newOrdersListCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every order",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := root.client().ListOrders(cmd.Context())
			if err != nil {
				return err
			}
			out := root.formatter(cmd)
			return out.Emit(orders, func(w io.Writer) error {
				rows := make([][]string, 0, len(orders))
				for _, o := range orders {
					rows = append(rows, []string{
						o.ID,
						o.Customer.Name,
						fmt.Sprintf("%.2f", o.Total),
						o.Status.Label(),
						fmt.Sprint(len(o.StatusHistory)),
					})
				}
				return out.Table([]string{"ID", "CUSTOMER", "TOTAL", "STATUS", "HISTORY"}, rows)
			})
		},
	}
}

func newOrdersSetStatusCommand(root *RootOptions) *cobra.Command {
	var change sdk.StatusChange

	cmd := &cobra.Command{
		Use:   "set-status <order-id> <status>",
		Short: "Move an order to a new status",
		Long: `Move an order to a new status and append the transition to its history.

Any status is accepted; unrecognized values are stored as given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change.Status = args[1]
			order, err := root.client().SetOrderStatus(cmd.Context(), args[0], change)
			if err != nil {
				return err
			}
			return root.formatter(cmd).Emit(order, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", order.ID, catalog.OrderStatus(change.Status).Label())
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&change.Description, "description", "d", "", "ledger description")
	cmd.Flags().StringVar(&change.Location, "location", "", "ledger location")
	cmd.Flags().StringVar(&change.Details, "details", "", "ledger details")
	return cmd
}
