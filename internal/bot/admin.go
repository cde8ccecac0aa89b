package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"sportbook/internal/calendar"
	"sportbook/internal/metrics"
	"sportbook/internal/model"
	"sportbook/internal/report"
	"sportbook/internal/selection"
)

// adminBranchID resolves which branch the operator manages. Operators
// without a fixed branch (tenant or super admins) act on the branch they
// are currently browsing.
func (b *Bot) adminBranchID(userID int64, st *userState) string {
	op := b.operator(userID)
	if op == nil {
		return ""
	}
	if op.BranchID != "" {
		return op.BranchID
	}
	return st.Draft.BranchID
}

func (b *Bot) handlePendingBookings(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	branchID := b.adminBranchID(userID, st)
	if branchID == "" {
		b.reply(chatID, "Abre primero el calendario de una sede: 🗓 Reservar")
		return
	}

	bookings, err := b.userAPI(ctx, userID).ListPendingBookings(ctx, branchID)
	if err != nil {
		b.reply(chatID, "Error al cargar las solicitudes")
		return
	}
	if len(bookings) == 0 {
		b.reply(chatID, "No hay solicitudes pendientes")
		return
	}

	for _, bk := range bookings {
		b.sendDecisionMessage(chatID, bk)
	}
}

func (b *Bot) sendDecisionMessage(chatID int64, bk model.Booking) {
	name := bk.GuestName
	if name == "" {
		name = bk.UserID
	}
	text := fmt.Sprintf(
		"🆕 Solicitud\n📅 %s\n🕐 %s-%s\n👤 %s\n💰 %.2f",
		bk.StartAt.Format("02/01/2006"),
		bk.StartAt.Format("15:04"),
		bk.EndAt.Format("15:04"),
		name,
		bk.TotalPrice,
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", "adm:confirm:"+bk.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Rechazar", "adm:reject:"+bk.ID),
		),
	)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleAdminDecision(ctx context.Context, chatID, userID int64, st *userState, data string) {
	if !b.isAdmin(userID) {
		return
	}
	switch {
	case strings.HasPrefix(data, "adm:confirm:"):
		bookingID := strings.TrimPrefix(data, "adm:confirm:")
		d := b.dispatcher(ctx, chatID, userID, st)
		if err := d.ConfirmBooking(ctx, bookingID); err != nil {
			return
		}
		metrics.IncAdminDecision("confirmed")
		b.notifyBookingOwner(ctx, bookingID, "✅ Tu reserva fue confirmada")
	case strings.HasPrefix(data, "adm:reject:"):
		st.Draft.RejectBookingID = strings.TrimPrefix(data, "adm:reject:")
		st.Step = stepRejectReason
		b.reply(chatID, "Escribe el motivo del rechazo:")
	}
}

func (b *Bot) handleRejectReason(ctx context.Context, chatID, userID int64, st *userState, reason string) {
	bookingID := st.Draft.RejectBookingID
	if bookingID == "" {
		st.Step = stepNone
		return
	}

	d := b.dispatcher(ctx, chatID, userID, st)
	if err := d.RejectBooking(ctx, bookingID, reason); err != nil {
		// empty reason keeps the step open so the admin can retry
		return
	}
	metrics.IncAdminDecision("rejected")
	st.Draft.RejectBookingID = ""
	st.Step = stepNone
	b.notifyBookingOwner(ctx, bookingID, fmt.Sprintf("❌ Tu reserva fue rechazada: %s", reason))
}

// notifyBookingOwner pushes a status change to every Telegram account
// linked to the booking's owner. Best effort.
func (b *Bot) notifyBookingOwner(ctx context.Context, bookingID, text string) {
	log := zerolog.Ctx(ctx)
	booking, err := b.api.GetBooking(ctx, bookingID)
	if err != nil || booking.UserID == "" {
		return
	}
	chatIDs, err := b.db.LinkedTelegramIDs(ctx, booking.UserID)
	if err != nil || len(chatIDs) == 0 {
		return
	}
	b.sender.broadcast(ctx, chatIDs, text, log)
}

// --- blocking flow ---

func (b *Bot) startBlockFlow(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	if st.Draft.ResourceID != "" {
		// already browsing a resource: flip the open grid to corner mode
		st.Blocking = true
		st.GridMsgID = 0
		b.drags.Reset(userID)
		b.reply(chatID, "Modo bloqueo: toca una esquina del rectángulo y luego la opuesta.")
		b.sendWeekGrid(ctx, chatID, userID, st)
		return
	}
	b.reply(chatID, "Elige la cancha cuyos horarios quieres bloquear.")
	b.startBrowseFlow(ctx, chatID, userID, true)
}

func (b *Bot) handleCornerCallback(ctx context.Context, chatID, userID int64, st *userState, data string) {
	if !b.isAdmin(userID) || !st.Blocking {
		return
	}
	dayIdx, slotIdx, ok := parseCellData(data, "corner:")
	if !ok || st.Draft.ResourceID == "" {
		return
	}

	view, err := b.fetchWeek(ctx, userID, st)
	if err != nil || view.rows == nil || slotIdx >= len(view.rows) {
		b.reply(chatID, "Error al cargar el calendario")
		return
	}

	drag := b.drags.GetOrCreate(userID, len(view.rows))
	cell := selection.Cell{Day: dayIdx, Slot: slotIdx}

	if drag.Phase() == selection.PhaseIdle {
		if !drag.Begin(cell, view.grid[slotIdx][dayIdx]) {
			b.reply(chatID, "Ese horario no se puede usar como esquina")
			return
		}
		b.reply(chatID, fmt.Sprintf("Esquina marcada: %s %s. Ahora toca la esquina opuesta.",
			view.days[dayIdx].Format("02/01"), view.rows[slotIdx].Start))
		return
	}

	drag.Extend(cell)
	rect, ok := drag.End()
	if !ok {
		b.drags.Reset(userID)
		b.reply(chatID, "La selección expiró, empieza de nuevo.")
		return
	}

	candidates := selection.Resolve(rect, view.days, view.rows, time.Now())
	if len(candidates) == 0 {
		b.drags.Reset(userID)
		b.reply(chatID, "El rectángulo elegido solo cubre días pasados.")
		return
	}

	st.Candidates = candidates
	st.Step = stepBlockReason

	first := candidates[0]
	b.reply(chatID, fmt.Sprintf(
		"Vas a bloquear %d día(s), de %s a %s.\nEscribe el motivo (o '-' para omitirlo):",
		len(candidates), first.StartTime, first.EndTime))
}

func (b *Bot) handleBlockReason(ctx context.Context, chatID, userID int64, st *userState, reason string) {
	if reason == "-" {
		reason = ""
	}
	candidates := st.Candidates
	st.Candidates = nil
	st.Step = stepWeek
	b.drags.Reset(userID)

	d := b.dispatcher(ctx, chatID, userID, st)
	if err := d.BlockDays(ctx, st.Draft.BranchID, st.Draft.ResourceID, reason, candidates); err != nil {
		return
	}
	metrics.AddSlotsBlocked(len(candidates))
}

// --- hours and export ---

var weekdayNames = [7]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

func (b *Bot) handleShowHours(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	branchID := b.adminBranchID(userID, st)
	if branchID == "" {
		b.reply(chatID, "Abre primero el calendario de una sede: 🗓 Reservar")
		return
	}

	hours, err := b.api.GetBranchHours(ctx, branchID)
	if err != nil {
		b.reply(chatID, "Error al cargar los horarios")
		return
	}

	byDay := make(map[int]model.BranchHours, len(hours))
	for _, h := range hours {
		byDay[h.DayOfWeek] = h
	}

	var sb strings.Builder
	sb.WriteString("🕐 Horario semanal:\n")
	for d := 0; d < 7; d++ {
		h, ok := byDay[d]
		switch {
		case !ok:
			sb.WriteString(fmt.Sprintf("%s: sin definir\n", weekdayNames[d]))
		case h.IsClosed:
			sb.WriteString(fmt.Sprintf("%s: cerrado\n", weekdayNames[d]))
		default:
			sb.WriteString(fmt.Sprintf("%s: %s-%s\n", weekdayNames[d], h.OpenTime, h.CloseTime))
		}
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleExportWeek(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	if st.Draft.ResourceID == "" {
		b.reply(chatID, "Abre primero el calendario de una cancha: 🗓 Reservar")
		return
	}

	view, err := b.fetchWeek(ctx, userID, st)
	if err != nil || view.rows == nil {
		b.reply(chatID, "Error al generar el reporte")
		return
	}

	from := view.days[0]
	to := view.days[6].AddDate(0, 0, 1)
	cal, err := b.api.ResourceCalendar(ctx, st.Draft.ResourceID, from, to)
	if err != nil {
		b.reply(chatID, "Error al generar el reporte")
		return
	}

	var buf bytes.Buffer
	if err := report.WeekReport(&buf, st.Draft.ResourceName, view.days, view.rows, view.grid, cal.Bookings); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("week report failed")
		b.reply(chatID, "Error al generar el reporte")
		return
	}

	name := fmt.Sprintf("semana_%s.xlsx", calendar.DateKey(view.days[0]))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("Ocupación de %s, semana del %s", st.Draft.ResourceName, view.days[0].Format("02/01/2006"))
	_, _ = b.tg.Send(doc)
}
