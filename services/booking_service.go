package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/utils"
)

var (
	ErrPropertyNotFound = errors.New("property_not_found")
	ErrInvalidStay      = errors.New("invalid_stay_dates")
)

// BookingService owns booking creation and lifecycle. Creating a booking
// pre-creates one guest row per expected occupant so the TM30 pipeline always
// has records to attach passports to.
type BookingService struct {
	DB *gorm.DB
}

func NewBookingService(db *gorm.DB) *BookingService {
	return &BookingService{DB: db}
}

// CreateBookingInput is the minimal shape the rental platform hands over when
// a booking is confirmed.
type CreateBookingInput struct {
	PropertyID     uint       `json:"propertyId" binding:"required"`
	CustomerName   string     `json:"customerName" binding:"required"`
	CustomerEmail  string     `json:"customerEmail"`
	ReferenceCode  string     `json:"referenceCode"`
	CheckIn        *time.Time `json:"checkIn" binding:"required"`
	CheckOut       *time.Time `json:"checkOut" binding:"required"`
	NumberOfGuests int        `json:"numberOfGuests"`
	Confirmed      bool       `json:"confirmed"`
}

func (s *BookingService) Create(in CreateBookingInput) (*models.Booking, error) {
	var property models.Property
	if err := s.DB.First(&property, in.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("load property: %w", err)
	}

	if in.CheckIn == nil || in.CheckOut == nil || !in.CheckOut.After(*in.CheckIn) {
		return nil, ErrInvalidStay
	}

	occupants := in.NumberOfGuests
	if occupants < 1 {
		occupants = 1
	}

	portalToken, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate portal token: %w", err)
	}

	refCode := strings.TrimSpace(in.ReferenceCode)
	if refCode == "" {
		code, cErr := utils.GenerateReferenceCode(8)
		if cErr != nil {
			return nil, fmt.Errorf("generate reference code: %w", cErr)
		}
		refCode = code
	}

	status := models.BookingLifecyclePending
	if in.Confirmed {
		status = models.BookingLifecycleConfirmed
	}

	var booking models.Booking
	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		customer := models.Customer{
			FullName:    strings.TrimSpace(in.CustomerName),
			Email:       strings.TrimSpace(in.CustomerEmail),
			PortalToken: portalToken,
		}
		if err := tx.Create(&customer).Error; err != nil {
			return fmt.Errorf("create customer: %w", err)
		}

		booking = models.Booking{
			PropertyID:     property.ID,
			CustomerID:     customer.ID,
			ReferenceCode:  refCode,
			Status:         status,
			CheckIn:        in.CheckIn,
			CheckOut:       in.CheckOut,
			NumberOfGuests: occupants,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		// One row per expected occupant; primary first.
		guests := make([]models.Guest, 0, occupants)
		for i := 0; i < occupants; i++ {
			guests = append(guests, models.Guest{
				BookingID: booking.ID,
				IsPrimary: i == 0,
			})
		}
		if err := tx.Create(&guests).Error; err != nil {
			return fmt.Errorf("create guests: %w", err)
		}

		booking.Customer = customer
		booking.Guests = guests
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("✅ booking created id=%d ref=%s occupants=%d", booking.ID, booking.ReferenceCode, occupants)
	return &booking, nil
}

func (s *BookingService) GetByID(id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.DB.Preload("Property").Preload("Customer").Preload("Guests").First(&booking, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (s *BookingService) List() ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.DB.Preload("Property").Order("id DESC").Find(&bookings).Error
	return bookings, err
}

// Confirm moves the rental lifecycle to CONFIRMED (dispatch and scheduling
// only consider confirmed bookings).
func (s *BookingService) Confirm(id uint) error {
	res := s.DB.Model(&models.Booking{}).Where("id = ?", id).
		Update("status", models.BookingLifecycleConfirmed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}
