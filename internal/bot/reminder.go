package bot

import (
	"context"
	"fmt"
	"time"

	"sportbook/internal/model"
)

// StartReminders schedules a daily pass that messages linked users about
// their next-day confirmed bookings.
func (b *Bot) StartReminders(ctx context.Context, branchIDs []string) {
	if len(branchIDs) == 0 {
		return
	}

	go func() {
		// wait until the next 09:00 local, then tick every 24h
		timer := time.NewTimer(timeUntilNextHour(9))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx, branchIDs)
				timer.Reset(24 * time.Hour)
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context, branchIDs []string) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	for _, branchID := range branchIDs {
		bookings, err := b.api.ListBranchBookings(ctx, branchID, from, to)
		if err != nil {
			b.logger.Warn().Err(err).Str("branch_id", branchID).Msg("reminder fetch failed")
			continue
		}
		for _, bk := range bookings {
			if bk.Status != model.StatusConfirmed || bk.UserID == "" {
				continue
			}
			chatIDs, err := b.db.LinkedTelegramIDs(ctx, bk.UserID)
			if err != nil || len(chatIDs) == 0 {
				continue
			}
			text := fmt.Sprintf("⏰ Recuerda: mañana tienes una reserva de %s a %s.",
				bk.StartAt.Format("15:04"), bk.EndAt.Format("15:04"))
			b.sender.broadcast(ctx, chatIDs, text, b.logger)
		}
	}
}

func timeUntilNextHour(hour int) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.Local)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
