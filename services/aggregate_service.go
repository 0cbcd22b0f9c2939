package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/tm30"
)

// Aggregator derives the booking-level TM30 status from the child guests.
// It is the only writer of passports_received and of the
// PENDING <-> PASSPORT_RECEIVED transitions; the dispatch lifecycle statuses
// (PROCESSING/SUBMITTED/FAILED) belong to the dispatcher and are never touched
// here.
type Aggregator struct {
	DB *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{DB: db}
}

// Recompute re-derives the booking aggregate after any guest mutation.
func (a *Aggregator) Recompute(bookingID uint) error {
	var booking models.Booking
	if err := a.DB.First(&booking, bookingID).Error; err != nil {
		return fmt.Errorf("load booking: %w", err)
	}

	var guests []models.Guest
	if err := a.DB.Where("booking_id = ?", bookingID).Find(&guests).Error; err != nil {
		return fmt.Errorf("load guests: %w", err)
	}

	received := 0
	allScanned := len(guests) > 0
	for _, g := range guests {
		if g.PassportImageURL != "" {
			received++
		}
		if !tm30.GuestCountsForReceived(g.TM30Status) {
			allScanned = false
		}
	}

	updates := map[string]interface{}{"passports_received": received}

	switch booking.TM30Status {
	case tm30.BookingPending, tm30.BookingPassportReceived:
		target := tm30.BookingPending
		// All images present AND every guest past OCR; partial progress is
		// not surfaced as a distinct state.
		if received == len(guests) && allScanned {
			target = tm30.BookingPassportReceived
		}
		if next, err := tm30.TransitionBooking(booking.TM30Status, target); err == nil {
			updates["tm30_status"] = next
		}
	default:
		// dispatch lifecycle owns the status; only refresh the counter
	}

	if err := a.DB.Model(&models.Booking{}).Where("id = ?", bookingID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update booking aggregate: %w", err)
	}

	log.Printf("⬅️ Aggregator.Recompute booking=%d received=%d/%d status=%v",
		bookingID, received, len(guests), updates["tm30_status"])
	return nil
}
