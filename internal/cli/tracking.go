package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

// NewTrackingCommand groups the shipment tracking subcommands.
func NewTrackingCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Manage shipment tracking records",
	}
	cmd.AddCommand(newTrackingListCommand(root))
	cmd.AddCommand(newTrackingCreateCommand(root))
	cmd.AddCommand(newTrackingUpdateCommand(root))
	cmd.AddCommand(newTrackingDeleteCommand(root))
	return cmd
}

func newTrackingListCommand(root *RootOptions) *cobra.Command {
	var q sdk.TrackingQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracking records",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := root.client().ListTracking(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := root.formatter(cmd)
			return out.Emit(records, func(w io.Writer) error {
				rows := make([][]string, 0, len(records))
				for _, r := range records {
					rows = append(rows, []string{
						r.TrackingCode,
						r.OrderNumber,
						r.CustomerName,
						r.CurrentStatus.Label(),
						r.UpdatedAt.Local().Format("02/01/2006 15:04"),
					})
				}
				return out.Table([]string{"CODE", "ORDER", "CUSTOMER", "STATUS", "UPDATED"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&q.Code, "code", "", "exact tracking code")
	cmd.Flags().StringVar(&q.OrderNumber, "order", "", "order number")
	cmd.Flags().StringVar(&q.Status, "status", "", "current status")
	cmd.Flags().StringVarP(&q.Query, "query", "q", "", "search customer, email, code or order")
	return cmd
}

func newTrackingCreateCommand(root *RootOptions) *cobra.Command {
	var in sdk.NewTracking

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a tracking code for an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := root.client().CreateTracking(cmd.Context(), in)
			if err != nil {
				return err
			}
			return root.formatter(cmd).Emit(rec, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, rec.TrackingCode)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&in.OrderNumber, "order", "", "order number (required)")
	cmd.Flags().StringVar(&in.CustomerName, "name", "", "customer name")
	cmd.Flags().StringVar(&in.CustomerEmail, "email", "", "customer email")
	cmd.Flags().StringVar(&in.DestinationCity, "city", "", "destination city")
	cmd.Flags().StringVar(&in.DestinationState, "state", "", "destination state")
	cmd.Flags().StringVar(&in.Location, "location", "", "posting location")
	cmd.MarkFlagRequired("order")
	return cmd
}

func newTrackingUpdateCommand(root *RootOptions) *cobra.Command {
	var change sdk.StatusChange

	cmd := &cobra.Command{
		Use:   "update <id> <status>",
		Short: "Append a status to a tracking record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change.ID = args[0]
			change.Status = args[1]
			rec, err := root.client().UpdateTracking(cmd.Context(), change)
			if err != nil {
				return err
			}
			return root.formatter(cmd).Emit(rec, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s (%d entries)\n", rec.TrackingCode, rec.CurrentStatus.Label(), len(rec.History))
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&change.Description, "description", "d", "", "ledger description")
	cmd.Flags().StringVar(&change.Location, "location", "", "where the shipment is")
	cmd.Flags().StringVar(&change.Details, "details", "", "ledger details")
	return cmd
}

func newTrackingDeleteCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a tracking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.client().DeleteTracking(cmd.Context(), args[0]); err != nil {
				return err
			}
			return root.formatter(cmd).Emit(map[string]string{"status": "success", "id": args[0]}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "deleted %s\n", args[0])
				return err
			})
		},
	}
}
