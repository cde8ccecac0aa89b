package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sportbook/internal/calendar"
	"sportbook/internal/selection"
)

func blockCmd() *cobra.Command {
	var branchID string
	var resourceID string
	var fromDate string
	var toDate string
	var startTime string
	var endTime string
	var reason string

	cmd := &cobra.Command{
		Use:   "block",
		Short: "Block a rectangle of slots across consecutive days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			if startTime == "" || endTime == "" {
				return fmt.Errorf("--start and --end are required")
			}
			from, err := parseDateInput(fromDate)
			if err != nil {
				return err
			}
			to := from
			if toDate != "" {
				if to, err = parseDateInput(toDate); err != nil {
					return err
				}
			}
			if to.Before(from) {
				return fmt.Errorf("--to must be on or after --from")
			}

			ctx := context.Background()
			view, err := fetchWeek(ctx, branchID, resourceID, from, true)
			if err != nil {
				return err
			}

			rect, err := view.rect(from, to, startTime, endTime)
			if err != nil {
				return err
			}
			candidates := selection.Resolve(rect, view.days, view.rows, time.Now())
			if len(candidates) == 0 {
				return fmt.Errorf("the selection only covers past days")
			}

			return newDispatcher().BlockDays(ctx, branchID, resourceID, reason, candidates)
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	cmd.Flags().StringVar(&resourceID, "resource", "", "Resource ID (empty blocks the whole branch)")
	cmd.Flags().StringVar(&fromDate, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "Last date, same week as --from (defaults to --from)")
	cmd.Flags().StringVar(&startTime, "start", "", "Start time (HH:MM)")
	cmd.Flags().StringVar(&endTime, "end", "", "End time (HH:MM), exclusive")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown on the blocked slots")
	return cmd
}

// rect maps a date range plus a time range onto grid coordinates. Both
// dates must fall inside the view's week and both times must align with
// slot boundaries.
func (v *weekView) rect(from, to time.Time, startTime, endTime string) (selection.Rect, error) {
	minDay, maxDay := -1, -1
	for i, day := range v.days {
		if calendar.SameDay(day, from) {
			minDay = i
		}
		if calendar.SameDay(day, to) {
			maxDay = i
		}
	}
	if minDay < 0 || maxDay < 0 {
		return selection.Rect{}, fmt.Errorf("--from and --to must fall in the week of %s", v.days[0].Format("2006-01-02"))
	}

	minSlot, maxSlot := -1, -1
	for i, slot := range v.rows {
		if slot.Start == startTime {
			minSlot = i
		}
		if slot.End == endTime {
			maxSlot = i
		}
	}
	if minSlot < 0 {
		return selection.Rect{}, fmt.Errorf("no slot starts at %s", startTime)
	}
	if maxSlot < 0 {
		return selection.Rect{}, fmt.Errorf("no slot ends at %s", endTime)
	}
	if maxSlot < minSlot {
		return selection.Rect{}, fmt.Errorf("--end must be after --start")
	}
	return selection.Rect{MinDay: minDay, MaxDay: maxDay, MinSlot: minSlot, MaxSlot: maxSlot}, nil
}

func unblockCmd() *cobra.Command {
	var branchID string

	cmd := &cobra.Command{
		Use:   "unblock <slot-id>",
		Short: "Delete a blocked slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchID == "" {
				return fmt.Errorf("--branch is required")
			}
			return newDispatcher().UnblockSlot(context.Background(), branchID, args[0])
		},
	}

	cmd.Flags().StringVar(&branchID, "branch", "", "Branch ID")
	return cmd
}
