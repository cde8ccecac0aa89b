package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sportbook/internal/model"
)

func bookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List and decide bookings",
	}

	cmd.AddCommand(bookingsPendingCmd())
	cmd.AddCommand(bookingsListCmd())
	cmd.AddCommand(bookingsConfirmCmd())
	cmd.AddCommand(bookingsRejectCmd())
	cmd.AddCommand(bookingsCancelCmd())
	return cmd
}

func bookingsPendingCmd() *cobra.Command {
	var branchID string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List bookings awaiting a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			bookings, err := client.ListPendingBookings(context.Background(), branchID)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(bookings)
			}
			return renderBookings(bookings)
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	return cmd
}

func bookingsListCmd() *cobra.Command {
	var branchID string
	var fromDate string
	var toDate string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a branch's bookings in a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			from, err := parseDateInput(fromDate)
			if err != nil {
				return err
			}
			to := from.AddDate(0, 0, 1)
			if toDate != "" {
				end, err := parseDateInput(toDate)
				if err != nil {
					return err
				}
				to = end.AddDate(0, 0, 1)
			}
			if to.Before(from) {
				return fmt.Errorf("--to must be on or after --from")
			}

			bookings, err := client.ListBranchBookings(context.Background(), branchID, from, to)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(bookings)
			}
			return renderBookings(bookings)
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	cmd.Flags().StringVar(&fromDate, "from", "", "First date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&toDate, "to", "", "Last date (defaults to --from)")
	return cmd
}

func bookingsConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <booking-id>",
		Short: "Confirm a pending booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newDispatcher().ConfirmBooking(context.Background(), args[0])
		},
	}
}

func bookingsRejectCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <booking-id>",
		Short: "Reject a pending booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newDispatcher().RejectBooking(context.Background(), args[0], reason)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Rejection reason (required)")
	return cmd
}

func bookingsCancelCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newDispatcher().CancelBooking(context.Background(), args[0], reason)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")
	return cmd
}

func renderBookings(bookings []model.Booking) error {
	if len(bookings) == 0 {
		fmt.Println("No hay reservas.")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tRECURSO\tINICIO\tFIN\tESTADO\tCLIENTE\tPRECIO")
	for _, b := range bookings {
		customer := b.GuestName
		if customer == "" {
			customer = b.UserID
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			b.ID, b.ResourceID,
			b.StartAt.Local().Format("2006-01-02 15:04"),
			b.EndAt.Local().Format("15:04"),
			b.Status, customer, b.TotalPrice)
	}
	return writer.Flush()
}
