package export

import (
	"fmt"
	"io"

	"studiobook/internal/models"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

// WriteBookingsXLSX streams an .xlsx workbook of bookings for the admin
// dashboard download.
func WriteBookingsXLSX(w io.Writer, bookings []models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Service", "Date", "Time", "Customer", "Email", "Phone",
		"Price", "Status", "Refund Amount", "Cancellation Reason", "Created",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, header)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	for i, booking := range bookings {
		row := i + 2
		values := []any{
			booking.ID,
			booking.ServiceName,
			booking.BookingDate,
			booking.BookingTime,
			booking.CustomerName,
			booking.CustomerEmail,
			booking.CustomerPhone,
			booking.Price,
			booking.Status,
			booking.RefundAmount,
			booking.CancellationReason,
			booking.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, value)
		}

		if styleID, err := rowStyle(f, booking.Status); err == nil && styleID != 0 {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(bookingsSheet, first, last, styleID)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "G", 22)
	_ = f.SetColWidth(bookingsSheet, "H", "L", 16)
	_ = f.DeleteSheet("Sheet1")

	return f.Write(w)
}

func rowStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusConfirmed:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusCancelled, models.StatusRefunded:
		color = "#FFC7CE"
	default:
		return 0, nil
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}
