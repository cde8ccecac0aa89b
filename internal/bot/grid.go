package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sportbook/internal/calendar"
	"sportbook/internal/selection"
)

var weekdayTags = [7]string{"Do", "Lu", "Ma", "Mi", "Ju", "Vi", "Sá"}

var stateIcons = map[calendar.CellState]string{
	calendar.CellFree:             "🟢",
	calendar.CellFreeWithDiscount: "💲",
	calendar.CellBooked:           "🔴",
	calendar.CellPendingMine:      "🕓",
	calendar.CellBlocked:          "🚫",
	calendar.CellOutsideHours:     "➖",
	calendar.CellPast:             "▫️",
	calendar.CellClosed:           "✖️",
}

func stateIcon(state calendar.CellState) string {
	if icon, ok := stateIcons[state]; ok {
		return icon
	}
	return "·"
}

// GenerateWeekKeyboard renders the classified week as an inline keyboard:
// a weekday header, one row per time slot, and a navigation row. In
// blocking mode every selectable cell emits a corner callback instead of
// a booking one.
func GenerateWeekKeyboard(days [7]time.Time, rows []calendar.TimeSlot, grid [][7]calendar.CellState, canGoBack, blocking bool) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows)+2)

	header := make([]tgbotapi.InlineKeyboardButton, 0, 8)
	header = append(header, tgbotapi.NewInlineKeyboardButtonData("🕐", "noop"))
	for _, day := range days {
		label := fmt.Sprintf("%s%d", weekdayTags[int(day.Weekday())], day.Day())
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(label, "noop"))
	}
	kb = append(kb, header)

	for i, slot := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 8)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(slot.Start, "noop"))
		for d := 0; d < 7; d++ {
			state := grid[i][d]
			data := "noop"
			if blocking {
				if selection.CanStartDrag(state) {
					data = fmt.Sprintf("corner:%d:%d", d, i)
				}
			} else if state == calendar.CellFree || state == calendar.CellFreeWithDiscount {
				data = fmt.Sprintf("cell:%d:%d", d, i)
			} else if state == calendar.CellPendingMine {
				// own pending request: tappable to cancel it
				data = fmt.Sprintf("mine:%d:%d", d, i)
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(stateIcon(state), data))
		}
		kb = append(kb, row)
	}

	nav := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	if canGoBack {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", "week:prev"))
	}
	rangeLabel := fmt.Sprintf("%s – %s", days[0].Format("02/01"), days[6].Format("02/01"))
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(rangeLabel, "noop"))
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", "week:next"))
	kb = append(kb, nav)

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kb}
}

// gridLegend is appended under the grid so icons stay readable.
func gridLegend(blocking bool) string {
	if blocking {
		return "Toca una esquina y luego la esquina opuesta para marcar el rectángulo a bloquear.\n" +
			"🟢 libre · 🔴 reservado · 🚫 bloqueado · ➖ fuera de horario"
	}
	return "🟢 libre · 💲 con descuento · 🔴 reservado · 🕓 tu solicitud (toca para cancelar) · 🚫 bloqueado · ➖ fuera de horario"
}
