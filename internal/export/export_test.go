package export

import (
	"bytes"
	"testing"
	"time"

	"studiobook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookingsXLSX(t *testing.T) {
	bookings := []models.Booking{
		{
			ID:            "b-1",
			ServiceName:   "Indie",
			BookingDate:   "2026-09-14",
			BookingTime:   "10:00",
			CustomerName:  "Ada Lovelace",
			CustomerEmail: "ada@example.com",
			Price:         399,
			Status:        models.StatusConfirmed,
			CreatedAt:     time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:           "b-2",
			ServiceName:  "Indie",
			BookingDate:  "2026-09-15",
			BookingTime:  "11:00",
			CustomerName: "Grace Hopper",
			Price:        399,
			Status:       models.StatusRefunded,
			RefundAmount: 399,
			CreatedAt:    time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookingsXLSX(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "b-1", rows[1][0])
	assert.Equal(t, "ada@example.com", rows[1][5])
	assert.Equal(t, "refunded", rows[2][8])
}

func TestWriteBookingsXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
