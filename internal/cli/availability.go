package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sportbook/internal/calendar"
	"sportbook/internal/model"
)

// cellMarks renders one CellState as a fixed-width grid mark.
var cellMarks = map[calendar.CellState]string{
	calendar.CellFree:             "o",
	calendar.CellFreeWithDiscount: "$",
	calendar.CellBooked:           "X",
	calendar.CellPendingMine:      "P",
	calendar.CellBlocked:          "#",
	calendar.CellOutsideHours:     "-",
	calendar.CellPast:             ".",
	calendar.CellClosed:           "/",
}

type weekCell struct {
	Date  string `json:"date"`
	Slot  string `json:"slot"`
	State string `json:"state"`
}

type weekOutput struct {
	ResourceID string     `json:"resource_id"`
	WeekStart  string     `json:"week_start"`
	Cells      []weekCell `json:"cells"`
}

func availabilityCmd() *cobra.Command {
	var resourceID string
	var branchID string
	var date string
	var adminView bool

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Render a resource's week as a text grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resourceID == "" {
				return fmt.Errorf("--resource is required")
			}
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			pivot, err := parseDateInput(date)
			if err != nil {
				return err
			}

			ctx := context.Background()
			view, err := fetchWeek(ctx, branchID, resourceID, pivot, adminView)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(view.output(resourceID))
			}
			return view.render(os.Stdout)
		},
	}

	cmd.Flags().StringVar(&resourceID, "resource", "", "Resource ID")
	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	cmd.Flags().StringVar(&date, "date", "", "Any date in the target week (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().BoolVar(&adminView, "admin-view", false, "Treat days without hours as closed")
	return cmd
}

type weekView struct {
	days [7]time.Time
	rows []calendar.TimeSlot
	grid [][7]calendar.CellState
}

func fetchWeek(ctx context.Context, branchID, resourceID string, pivot time.Time, adminView bool) (*weekView, error) {
	days := calendar.WeekDays(pivot, anchor())
	from := days[0]
	to := days[6].AddDate(0, 0, 1)

	cal, err := client.ResourceCalendar(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	hoursList, err := client.GetBranchHours(ctx, branchID)
	if err != nil {
		return nil, err
	}
	hours := make(map[int]model.BranchHours, len(hoursList))
	for _, h := range hoursList {
		hours[h.DayOfWeek] = h
	}

	policy := calendar.MissingHoursOpen
	if adminView {
		policy = calendar.MissingHoursClosed
	}
	rows, err := calendar.GridRows(hours, policy, hoursDefaults(), cfg.SlotInterval())
	if err != nil {
		return nil, err
	}

	snap := calendar.Snapshot{
		Bookings:     cal.Bookings,
		BlockedSlots: cal.BlockedSlots,
		Hours:        hours,
		Discounts:    cal.Discounts,
	}
	grid := calendar.ClassifyWeek(days, rows, snap, calendar.ClassifyOptions{
		Policy:     policy,
		Defaults:   hoursDefaults(),
		ResourceID: resourceID,
		UserID:     actAsUser,
		Now:        time.Now(),
	})
	return &weekView{days: days, rows: rows, grid: grid}, nil
}

var weekdayShort = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

func (v *weekView) render(out *os.File) error {
	fmt.Fprintf(out, "Semana del %s\n", v.days[0].Format("2006-01-02"))

	writer := tabwriter.NewWriter(out, 2, 2, 2, ' ', 0)
	fmt.Fprint(writer, "HORA")
	for _, day := range v.days {
		fmt.Fprintf(writer, "\t%s %s", weekdayShort[int(day.Weekday())], day.Format("02/01"))
	}
	fmt.Fprintln(writer)
	for i, slot := range v.rows {
		fmt.Fprint(writer, slot.Label())
		for d := range v.days {
			fmt.Fprintf(writer, "\t%s", cellMarks[v.grid[i][d]])
		}
		fmt.Fprintln(writer)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "o libre  $ descuento  X reservado  P pendiente  # bloqueado  - fuera de horario  . pasado  / cerrado")
	return nil
}

func (v *weekView) output(resourceID string) weekOutput {
	out := weekOutput{ResourceID: resourceID, WeekStart: v.days[0].Format("2006-01-02")}
	for i, slot := range v.rows {
		for d, day := range v.days {
			out.Cells = append(out.Cells, weekCell{
				Date:  day.Format("2006-01-02"),
				Slot:  slot.Label(),
				State: string(v.grid[i][d]),
			})
		}
	}
	return out
}
