package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sportbook/internal/calendar"
	"sportbook/internal/model"
)

var weekdayNames = [7]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

func hoursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Show and edit a branch's weekly hours",
	}

	cmd.AddCommand(hoursShowCmd())
	cmd.AddCommand(hoursSetCmd())
	return cmd
}

func hoursShowCmd() *cobra.Command {
	var branchID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the branch's hours per weekday",
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			hoursList, err := client.GetBranchHours(context.Background(), branchID)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(hoursList)
			}

			byDay := make(map[int]model.BranchHours, len(hoursList))
			for _, h := range hoursList {
				byDay[h.DayOfWeek] = h
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "DÍA\tHORARIO")
			for day := 0; day < 7; day++ {
				h, ok := byDay[day]
				label := "sin definir"
				switch {
				case ok && h.IsClosed:
					label = "cerrado"
				case ok:
					label = h.OpenTime + " - " + h.CloseTime
				}
				fmt.Fprintf(writer, "%s\t%s\n", weekdayNames[day], label)
			}
			return writer.Flush()
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	return cmd
}

func hoursSetCmd() *cobra.Command {
	var branchID string
	var day int
	var openTime string
	var closeTime string
	var closed bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set one weekday's hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			if day < 0 || day > 6 {
				return fmt.Errorf("--day must be 0 (domingo) through 6 (sábado)")
			}
			record := model.BranchHours{BranchID: branchID, DayOfWeek: day, IsClosed: closed}
			if !closed {
				if openTime == "" || closeTime == "" {
					return fmt.Errorf("--open and --close are required unless --closed")
				}
				openMin, err := calendar.ParseClock(openTime)
				if err != nil {
					return err
				}
				closeMin, err := calendar.ParseClock(closeTime)
				if err != nil {
					return err
				}
				if closeMin <= openMin {
					return fmt.Errorf("--close must be after --open")
				}
				record.OpenTime = calendar.FormatClock(openMin)
				record.CloseTime = calendar.FormatClock(closeMin)
			}
			return newDispatcher().UpdateHours(context.Background(), branchID, []model.BranchHours{record})
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	cmd.Flags().IntVar(&day, "day", -1, "Day of week, 0 = domingo")
	cmd.Flags().StringVar(&openTime, "open", "", "Opening time (HH:MM)")
	cmd.Flags().StringVar(&closeTime, "close", "", "Closing time (HH:MM)")
	cmd.Flags().BoolVar(&closed, "closed", false, "Mark the day closed")
	return cmd
}
