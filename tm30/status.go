package tm30

import (
	"errors"
	"fmt"
)

// GuestStatus is the per-guest TM30 progress. Stored as a string column so the
// DB stays readable, but every write must go through Transition below.
type GuestStatus string

const (
	GuestPending    GuestStatus = "PENDING"    // no usable OCR result yet
	GuestScanned    GuestStatus = "SCANNED"    // OCR succeeded, not human-confirmed
	GuestVerified   GuestStatus = "VERIFIED"   // human confirmed the extracted fields
	GuestSubmitting GuestStatus = "SUBMITTING" // claimed by an in-flight dispatch
	GuestSubmitted  GuestStatus = "SUBMITTED"  // filing accepted by the automation
)

// BookingStatus is the booking-level TM30 aggregate status.
type BookingStatus string

const (
	BookingPending          BookingStatus = "PENDING"
	BookingPassportReceived BookingStatus = "PASSPORT_RECEIVED"
	BookingProcessing       BookingStatus = "PROCESSING"
	BookingSubmitted        BookingStatus = "SUBMITTED"
	BookingFailed           BookingStatus = "FAILED"
)

var ErrIllegalTransition = errors.New("illegal_status_transition")

var guestNext = map[GuestStatus][]GuestStatus{
	GuestPending:    {GuestScanned, GuestVerified},
	GuestScanned:    {GuestScanned, GuestVerified, GuestSubmitting},
	GuestVerified:   {GuestScanned, GuestVerified, GuestSubmitting},
	GuestSubmitting: {GuestSubmitted, GuestScanned, GuestVerified},
	GuestSubmitted:  {},
}

var bookingNext = map[BookingStatus][]BookingStatus{
	BookingPending:          {BookingPassportReceived},
	BookingPassportReceived: {BookingPending, BookingProcessing},
	BookingProcessing:       {BookingPassportReceived, BookingSubmitted, BookingFailed},
	BookingSubmitted:        {},
	BookingFailed:           {BookingPassportReceived},
}

// TransitionGuest validates from -> to. Admin corrections may reset any guest
// to PENDING; that is the only way past SUBMITTED.
func TransitionGuest(from, to GuestStatus, adminReset bool) (GuestStatus, error) {
	if from == to {
		return to, nil
	}
	if to == GuestPending {
		if adminReset {
			return to, nil
		}
		return from, fmt.Errorf("%w: guest %s -> %s", ErrIllegalTransition, from, to)
	}
	for _, n := range guestNext[from] {
		if n == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: guest %s -> %s", ErrIllegalTransition, from, to)
}

// TransitionBooking validates from -> to for the booking aggregate.
func TransitionBooking(from, to BookingStatus) (BookingStatus, error) {
	if from == to {
		return to, nil
	}
	for _, n := range bookingNext[from] {
		if n == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: booking %s -> %s", ErrIllegalTransition, from, to)
}

// GuestCountsForReceived reports whether a guest in this status counts toward
// the PASSPORT_RECEIVED aggregation rule.
func GuestCountsForReceived(s GuestStatus) bool {
	switch s {
	case GuestScanned, GuestVerified, GuestSubmitted:
		return true
	}
	return false
}
