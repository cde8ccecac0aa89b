// Package report exports week occupancy to .xlsx for admins who want the
// calendar outside Telegram.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"sportbook/internal/calendar"
	"sportbook/internal/model"
)

// Writer builds a multi-sheet Excel workbook row by row.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewWriter creates an empty workbook.
func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet adds a new sheet with the given name and makes it current.
func (w *Writer) AddSheet(name string) error {
	// Excel caps sheet names at 31 chars
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *Writer) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}

var stateLabels = map[calendar.CellState]string{
	calendar.CellFree:             "Libre",
	calendar.CellFreeWithDiscount: "Libre (descuento)",
	calendar.CellBooked:           "Reservado",
	calendar.CellPendingMine:      "Pendiente",
	calendar.CellBlocked:          "Bloqueado",
	calendar.CellOutsideHours:     "Fuera de horario",
	calendar.CellPast:             "Pasado",
	calendar.CellClosed:           "Cerrado",
}

// StateLabel returns the Spanish label for a cell state.
func StateLabel(state calendar.CellState) string {
	if label, ok := stateLabels[state]; ok {
		return label
	}
	return string(state)
}

var weekdayShort = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

// WeekReport writes a workbook: one sheet with the classified week grid,
// one with the raw bookings in that range.
func WeekReport(wr io.Writer, resourceName string, days [7]time.Time, rows []calendar.TimeSlot, grid [][7]calendar.CellState, bookings []model.Booking) error {
	w := NewWriter()
	defer w.Close()

	sheetName := fmt.Sprintf("Semana %s", days[0].Format("2006-01-02"))
	if err := w.AddSheet(sheetName); err != nil {
		return err
	}

	header := make([]string, 0, 8)
	header = append(header, "Hora")
	for _, day := range days {
		header = append(header, fmt.Sprintf("%s %s", weekdayShort[int(day.Weekday())], day.Format("02/01")))
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}

	for i, slot := range rows {
		row := make([]interface{}, 0, 8)
		row = append(row, slot.Label())
		for d := 0; d < 7; d++ {
			row = append(row, StateLabel(grid[i][d]))
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}

	if err := w.AddSheet("Reservas"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"ID", "Recurso", "Inicio", "Fin", "Estado", "Cliente"}); err != nil {
		return err
	}
	for _, b := range bookings {
		name := b.GuestName
		if name == "" {
			name = b.UserID
		}
		err := w.WriteRow([]interface{}{
			b.ID,
			resourceName,
			b.StartAt.Format("2006-01-02 15:04"),
			b.EndAt.Format("2006-01-02 15:04"),
			string(b.Status),
			name,
		})
		if err != nil {
			return err
		}
	}

	return w.Save(wr)
}
