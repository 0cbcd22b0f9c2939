package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/tm30"
)

// GuestService is the guest record store: source of truth for per-guest TM30
// status. All status writes go through the tm30 transition functions.
type GuestService struct {
	DB  *gorm.DB
	Agg *Aggregator
}

func NewGuestService(db *gorm.DB, agg *Aggregator) *GuestService {
	return &GuestService{DB: db, Agg: agg}
}

func (s *GuestService) GetByID(id uint) (*models.Guest, error) {
	var guest models.Guest
	if err := s.DB.First(&guest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &guest, nil
}

func (s *GuestService) GetByBookingID(bookingID uint) ([]models.Guest, error) {
	var guests []models.Guest
	err := s.DB.
		Where("booking_id = ?", bookingID).
		Order("is_primary DESC, id ASC").
		Find(&guests).Error
	return guests, err
}

// ManualCorrection overwrites a guest's passport fields from operator input.
// Status moves to VERIFIED when the caller explicitly asserted
// passportVerified, otherwise back to SCANNED.
func (s *GuestService) ManualCorrection(guestID uint, fields tm30.ExtractedPassport, passportVerified bool) (*models.Guest, error) {
	guest, err := s.GetByID(guestID)
	if err != nil {
		return nil, err
	}

	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	target := tm30.GuestScanned
	if passportVerified {
		target = tm30.GuestVerified
	}
	next, err := tm30.TransitionGuest(guest.TM30Status, target, false)
	if err != nil {
		return nil, err
	}

	// Manual edits keep the existing OCR provenance fields.
	fields.Confidence = guest.OCRConfidence
	guest.ApplyExtracted(fields)
	guest.PassportVerified = passportVerified
	guest.TM30Status = next

	if err := s.DB.Save(guest).Error; err != nil {
		return nil, fmt.Errorf("persist guest: %w", err)
	}

	if err := s.Agg.Recompute(guest.BookingID); err != nil {
		log.Printf("⚠️ recompute after correction failed booking=%d: %v", guest.BookingID, err)
	}

	log.Printf("✅ guest correction applied guest=%d verified=%v status=%s", guest.ID, passportVerified, guest.TM30Status)
	return guest, nil
}

// ResetStatus is the explicit administrative correction that may move a guest
// back to PENDING, the only allowed regression past SUBMITTED.
func (s *GuestService) ResetStatus(guestID uint) (*models.Guest, error) {
	guest, err := s.GetByID(guestID)
	if err != nil {
		return nil, err
	}

	next, err := tm30.TransitionGuest(guest.TM30Status, tm30.GuestPending, true)
	if err != nil {
		return nil, err
	}
	guest.TM30Status = next
	guest.PassportVerified = false

	if err := s.DB.Save(guest).Error; err != nil {
		return nil, fmt.Errorf("persist guest: %w", err)
	}
	_ = s.Agg.Recompute(guest.BookingID)

	log.Printf("⚠️ guest status reset guest=%d", guest.ID)
	return guest, nil
}
