package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/tm30"
)

// BookingOutcome is one entry of a scheduler run's per-booking result list.
type BookingOutcome struct {
	BookingID     uint   `json:"bookingId"`
	ReferenceCode string `json:"referenceCode"`
	Triggered     bool   `json:"triggered"`
	Skipped       bool   `json:"skipped"`
	Reason        string `json:"reason,omitempty"`
}

// SchedulerService runs the daily TM30 batch: bookings checking in "today"
// (Thailand local) whose guests are fully passport-verified.
type SchedulerService struct {
	DB         *gorm.DB
	Dispatcher *DispatchService
}

func NewSchedulerService(db *gorm.DB, dispatcher *DispatchService) *SchedulerService {
	return &SchedulerService{DB: db, Dispatcher: dispatcher}
}

// RunDaily selects and dispatches the eligible same-day check-ins. One
// booking's failure never aborts the rest; the result is always a per-booking
// outcome list.
func (s *SchedulerService) RunDaily(ctx context.Context, now time.Time) ([]BookingOutcome, error) {
	dayStart, dayEnd := tm30.DayWindow(now)

	var bookings []models.Booking
	err := s.DB.
		Joins("JOIN properties ON properties.id = bookings.property_id").
		Where("bookings.check_in >= ? AND bookings.check_in < ?", dayStart.UTC(), dayEnd.UTC()).
		Where("bookings.tm30_status = ?", tm30.BookingPassportReceived).
		Where("bookings.status = ?", models.BookingLifecycleConfirmed).
		Where("properties.tm30_accom_id <> ''").
		Preload("Guests").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	log.Printf("➡️ TM30 daily run: %d candidate booking(s) for %s", len(bookings), dayStart.Format("2006-01-02"))

	outcomes := make([]BookingOutcome, 0, len(bookings))
	for _, b := range bookings {
		outcome := BookingOutcome{BookingID: b.ID, ReferenceCode: b.ReferenceCode}

		if len(eligibleGuests(b.Guests, nil)) == 0 {
			outcome.Skipped = true
			outcome.Reason = "no eligible guests"
			log.Printf("ℹ️ TM30 daily run: skipping booking %d (no eligible guests)", b.ID)
			outcomes = append(outcomes, outcome)
			continue
		}

		res, dErr := s.Dispatcher.Dispatch(ctx, b.ID, DispatchOptions{DryRun: false})
		switch {
		case dErr == nil && res.ManualMode:
			outcome.Reason = "manual mode"
		case dErr == nil:
			outcome.Triggered = true
		case errors.Is(dErr, ErrNothingEligible):
			outcome.Skipped = true
			outcome.Reason = "no eligible guests"
		default:
			outcome.Reason = dErr.Error()
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}
