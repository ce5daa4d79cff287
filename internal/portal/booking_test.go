package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemed-portal/internal/backend"
)

func TestBookingOptions(t *testing.T) {
	opts := NewBooking(testOptions()).Options()

	require.Len(t, opts.Dates, 7)
	assert.Equal(t, "2025-03-11", opts.Dates[0].Value)
	assert.Equal(t, "Di", opts.Dates[0].Weekday)
	assert.Equal(t, "11", opts.Dates[0].Day)
	assert.Equal(t, "2025-03-17", opts.Dates[6].Value)

	assert.Len(t, opts.TimeSlots, 12)
	assert.Equal(t, "09:00", opts.TimeSlots[0])
	assert.Equal(t, "16:30", opts.TimeSlots[11])
	assert.Equal(t, backend.TypeVideo, opts.DefaultType)
	assert.Len(t, opts.Types, 3)
	assert.Equal(t, BookingSteps, opts.Steps)
}

func TestBookingCanProceed(t *testing.T) {
	b := NewBooking(testOptions())
	assert.False(t, b.CanProceed(0, BookingForm{Date: "2025-03-11"}))
	assert.True(t, b.CanProceed(0, BookingForm{Date: "2025-03-11", Time: "09:00"}))
	assert.True(t, b.CanProceed(1, BookingForm{}))
	assert.False(t, b.CanProceed(1, BookingForm{Type: "FAX"}))
	assert.True(t, b.CanProceed(2, BookingForm{DoctorID: 1, Date: "2025-03-11", Time: "09:00"}))
}

func TestBookingSubmitCreates(t *testing.T) {
	api := &fakeAPI{}
	apt, err := NewBooking(testOptions()).Submit(context.Background(), api, BookingForm{
		DoctorID:   3,
		DoctorName: "Dr. A",
		Date:       "2025-03-12",
		Time:       "14:30",
		Notes:      "Rückenschmerzen",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), apt.ID)
	assert.Equal(t, 1, api.count("create_appointment"))
	assert.Equal(t, backend.AppointmentRequest{
		DoctorID:   3,
		DoctorName: "Dr. A",
		Date:       "2025-03-12",
		Time:       "14:30",
		Type:       backend.TypeVideo,
		Notes:      "Rückenschmerzen",
		Status:     backend.StatusConfirmed,
	}, api.lastAppointment)
}

func TestBookingSubmitReschedules(t *testing.T) {
	api := &fakeAPI{}
	apt, err := NewBooking(testOptions()).Submit(context.Background(), api, BookingForm{
		AppointmentID: 7,
		DoctorID:      3,
		Date:          "2025-03-13",
		Time:          "09:30",
		Type:          backend.TypePhone,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), apt.ID)
	assert.Equal(t, 1, api.count("reschedule_appointment"))
	assert.Zero(t, api.count("create_appointment"))
}

func TestBookingRejectsUnofferedSlots(t *testing.T) {
	b := NewBooking(testOptions())
	api := &fakeAPI{}

	for _, form := range []BookingForm{
		{DoctorID: 1, Date: "2025-03-10", Time: "09:00"},
		{DoctorID: 1, Date: "2025-03-18", Time: "09:00"},
		{DoctorID: 1, Date: "2025-03-11", Time: "12:00"},
		{DoctorID: 0, Date: "2025-03-11", Time: "09:00"},
		{DoctorID: 1, Date: "2025-03-11", Time: "09:00", Type: "FAX"},
	} {
		_, err := b.Submit(context.Background(), api, form)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "%+v", form)
	}
	assert.Empty(t, api.calls)
}

func TestBookingFailureMessage(t *testing.T) {
	api := &fakeAPI{err: &backend.APIError{Status: 409, Detail: "slot taken"}}
	_, err := NewBooking(testOptions()).Submit(context.Background(), api, BookingForm{DoctorID: 1, Date: "2025-03-11", Time: "09:00"})

	var uerr *UserError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, BookingFailed, uerr.Message)
	assert.Equal(t, "Fehler bei der Buchung. Bitte versuchen Sie es erneut.", uerr.Message)
}

func TestBookingUnauthorizedPassesThrough(t *testing.T) {
	api := &fakeAPI{err: &backend.APIError{Status: 401}}
	_, err := NewBooking(testOptions()).Submit(context.Background(), api, BookingForm{DoctorID: 1, Date: "2025-03-11", Time: "09:00"})
	assert.True(t, errors.Is(err, backend.ErrUnauthorized))
}
