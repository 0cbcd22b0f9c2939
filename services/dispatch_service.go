package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/tm30"
)

var (
	ErrBookingNotFound  = errors.New("booking_not_found")
	ErrNoAccommodation  = errors.New("accommodation_not_registered")
	ErrNothingEligible  = errors.New("nothing_eligible")
	ErrDispatchInFlight = errors.New("dispatch_in_flight")
	ErrBookingNotReady  = errors.New("booking_not_ready")
	ErrDispatchFailed   = errors.New("dispatch_failed")
)

// DispatchOptions narrows a dispatch to one guest and/or marks it a dry run.
type DispatchOptions struct {
	GuestID *uint
	DryRun  bool
}

// DispatchResult distinguishes "dispatched", "manual mode" and "failed
// (reverted)" for the caller; it is never a bare error.
type DispatchResult struct {
	Triggered     bool                    `json:"triggered"`
	ManualMode    bool                    `json:"manualMode"`
	SubmissionRef string                  `json:"submissionRef,omitempty"`
	Payload       *tm30.SubmissionPayload `json:"payload,omitempty"`
	GuestCount    int                     `json:"guestCount"`
}

// DispatchService builds the filing payload for a booking's eligible guests
// and hands it to the automation executor, managing the PROCESSING claim and
// the failure rollback.
type DispatchService struct {
	DB       *gorm.DB
	Executor AutomationExecutor
}

func NewDispatchService(db *gorm.DB, executor AutomationExecutor) *DispatchService {
	return &DispatchService{DB: db, Executor: executor}
}

// Dispatch runs one submission attempt for bookingID.
//
// The booking/guest PROCESSING writes are committed before the external call:
// that ordering is the idempotency guard, and the claim itself is an atomic
// conditional update so two racing dispatches cannot both pass.
func (s *DispatchService) Dispatch(ctx context.Context, bookingID uint, opts DispatchOptions) (DispatchResult, error) {
	var booking models.Booking
	if err := s.DB.Preload("Property").Preload("Guests").First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DispatchResult{}, ErrBookingNotFound
		}
		return DispatchResult{}, fmt.Errorf("load booking: %w", err)
	}

	if !booking.Property.DispatchReady() {
		return DispatchResult{}, ErrNoAccommodation
	}
	if booking.CheckIn == nil || booking.CheckOut == nil {
		return DispatchResult{}, ErrBookingNotReady
	}

	eligible := eligibleGuests(booking.Guests, opts.GuestID)
	if len(eligible) == 0 {
		return DispatchResult{}, ErrNothingEligible
	}

	payload := tm30.SubmissionPayload{
		BookingID:     booking.ID,
		ReferenceCode: booking.ReferenceCode,
		AccomID:       booking.Property.TM30AccomID,
		AccomName:     booking.Property.TM30AccomName,
		DryRun:        opts.DryRun,
	}
	prevStatuses := make(map[uint]tm30.GuestStatus, len(eligible))
	for _, g := range eligible {
		payload.Guests = append(payload.Guests, tm30.BuildGuestEntry(g.ID, g.Extracted(), *booking.CheckIn, *booking.CheckOut))
		prevStatuses[g.ID] = g.TM30Status
	}

	if err := s.claim(bookingID, eligible); err != nil {
		return DispatchResult{}, err
	}

	ref, err := s.Executor.Trigger(ctx, payload)
	if errors.Is(err, ErrManualMode) {
		// Executor unavailable: release the claim entirely and hand the
		// fully-built payload back for manual filing.
		s.release(bookingID, prevStatuses)
		log.Printf("ℹ️ TM30 manual mode booking=%d guests=%d", bookingID, len(eligible))
		return DispatchResult{ManualMode: true, Payload: &payload, GuestCount: len(eligible)}, nil
	}
	if err != nil {
		// Revert the booking to its pre-dispatch value and keep the error
		// visible; guest statuses stay at SUBMITTING for inspection since the
		// data is still valid — only the submission attempt failed.
		s.revert(bookingID, err)
		log.Printf("❌ TM30 dispatch failed booking=%d guests=%d: %v", bookingID, len(eligible), err)
		return DispatchResult{GuestCount: len(eligible)}, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	updates := map[string]interface{}{"tm30_last_error": ""}
	if ref != "" {
		updates["tm30_submission_ref"] = ref
	}
	if uErr := s.DB.Model(&models.Booking{}).Where("id = ?", bookingID).Updates(updates).Error; uErr != nil {
		log.Printf("⚠️ failed to record submission ref booking=%d: %v", bookingID, uErr)
	}

	// Terminal success arrives asynchronously via the status callback; the
	// booking stays PROCESSING until then.
	log.Printf("✅ TM30 dispatch triggered booking=%d guests=%d dryRun=%v ref=%s", bookingID, len(eligible), opts.DryRun, ref)
	return DispatchResult{Triggered: true, SubmissionRef: ref, GuestCount: len(eligible)}, nil
}

// eligibleGuests selects the in-scope guests holding passport data and not
// already SUBMITTED.
func eligibleGuests(guests []models.Guest, guestID *uint) []models.Guest {
	out := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		if guestID != nil && g.ID != *guestID {
			continue
		}
		if !g.HasPassportData() || g.TM30Status == tm30.GuestSubmitted {
			continue
		}
		out = append(out, g)
	}
	return out
}

// claim atomically moves the booking to PROCESSING and the targeted guests to
// SUBMITTING. The conditional UPDATE is the concurrency control: zero affected
// rows means another dispatch holds the claim or the booking is not ready.
func (s *DispatchService) claim(bookingID uint, eligible []models.Guest) error {
	res := s.DB.Model(&models.Booking{}).
		Where("id = ? AND tm30_status IN ?", bookingID, []tm30.BookingStatus{tm30.BookingPassportReceived, tm30.BookingFailed}).
		Update("tm30_status", tm30.BookingProcessing)
	if res.Error != nil {
		return fmt.Errorf("claim booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Booking
		if err := s.DB.Select("tm30_status").First(&current, bookingID).Error; err == nil &&
			current.TM30Status == tm30.BookingProcessing {
			return ErrDispatchInFlight
		}
		return ErrBookingNotReady
	}

	ids := make([]uint, 0, len(eligible))
	for _, g := range eligible {
		ids = append(ids, g.ID)
	}
	if err := s.DB.Model(&models.Guest{}).
		Where("id IN ? AND tm30_status <> ?", ids, tm30.GuestSubmitted).
		Update("tm30_status", tm30.GuestSubmitting).Error; err != nil {
		return fmt.Errorf("mark guests submitting: %w", err)
	}
	return nil
}

// revert returns the booking to PASSPORT_RECEIVED and records the error text
// for operator visibility.
func (s *DispatchService) revert(bookingID uint, cause error) {
	if err := s.DB.Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(map[string]interface{}{
			"tm30_status":     tm30.BookingPassportReceived,
			"tm30_last_error": cause.Error(),
		}).Error; err != nil {
		log.Printf("❌ failed to revert booking %d after dispatch error: %v", bookingID, err)
	}
}

// release undoes a claim without recording a failure (manual-mode path):
// booking back to PASSPORT_RECEIVED, guests back to their pre-claim statuses.
func (s *DispatchService) release(bookingID uint, prev map[uint]tm30.GuestStatus) {
	if err := s.DB.Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("tm30_status", tm30.BookingPassportReceived).Error; err != nil {
		log.Printf("❌ failed to release booking %d claim: %v", bookingID, err)
	}
	for id, st := range prev {
		if err := s.DB.Model(&models.Guest{}).Where("id = ?", id).
			Update("tm30_status", st).Error; err != nil {
			log.Printf("⚠️ failed to restore guest %d status: %v", id, err)
		}
	}
}

// CallbackInput is the executor's asynchronous status report.
type CallbackInput struct {
	BookingID     uint   `json:"bookingId" binding:"required"`
	SubmissionRef string `json:"submissionRef"`
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	GuestIDs      []uint `json:"guestIds"`
}

// HandleCallback applies the executor's terminal outcome: success moves the
// named guests (or every SUBMITTING guest) to SUBMITTED and the booking to
// SUBMITTED; failure moves the booking to FAILED with the reported error.
func (s *DispatchService) HandleCallback(in CallbackInput) error {
	var booking models.Booking
	if err := s.DB.First(&booking, in.BookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("load booking: %w", err)
	}

	if !in.Success {
		next, err := tm30.TransitionBooking(booking.TM30Status, tm30.BookingFailed)
		if err != nil {
			return err
		}
		return s.DB.Model(&models.Booking{}).Where("id = ?", in.BookingID).
			Updates(map[string]interface{}{
				"tm30_status":     next,
				"tm30_last_error": in.Error,
			}).Error
	}

	guestScope := s.DB.Model(&models.Guest{}).
		Where("booking_id = ? AND tm30_status = ?", in.BookingID, tm30.GuestSubmitting)
	if len(in.GuestIDs) > 0 {
		guestScope = guestScope.Where("id IN ?", in.GuestIDs)
	}
	if err := guestScope.Update("tm30_status", tm30.GuestSubmitted).Error; err != nil {
		return fmt.Errorf("mark guests submitted: %w", err)
	}

	next, err := tm30.TransitionBooking(booking.TM30Status, tm30.BookingSubmitted)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"tm30_status":     next,
		"tm30_last_error": "",
	}
	if in.SubmissionRef != "" {
		updates["tm30_submission_ref"] = in.SubmissionRef
	}
	if err := s.DB.Model(&models.Booking{}).Where("id = ?", in.BookingID).Updates(updates).Error; err != nil {
		return fmt.Errorf("mark booking submitted: %w", err)
	}

	log.Printf("✅ TM30 callback applied booking=%d success=%v", in.BookingID, in.Success)
	return nil
}
