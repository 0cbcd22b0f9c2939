package models

import (
	"time"

	"gorm.io/gorm"

	"rental-backend/tm30"
)

// Rental lifecycle statuses, distinct from the TM30 compliance status.
const (
	BookingLifecyclePending   = "PENDING"
	BookingLifecycleConfirmed = "CONFIRMED"
	BookingLifecycleCancelled = "CANCELLED"
)

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PropertyID uint     `gorm:"index;column:property_id" json:"propertyId"`
	Property   Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`

	CustomerID uint     `gorm:"index;column:customer_id" json:"customerId"`
	Customer   Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	ReferenceCode string `gorm:"column:reference_code;size:64;uniqueIndex" json:"referenceCode"`
	Status        string `gorm:"column:status;size:64;default:PENDING" json:"status"`

	// Stored as instants, compared in Thailand local time (UTC+7).
	CheckIn  *time.Time `gorm:"column:check_in" json:"checkIn"`
	CheckOut *time.Time `gorm:"column:check_out" json:"checkOut"`

	NumberOfGuests int `gorm:"column:number_of_guests;default:1" json:"numberOfGuests"`

	// TM30 aggregate fields, recomputed after every child guest mutation.
	PassportsReceived int                `gorm:"column:passports_received;default:0" json:"passportsReceived"`
	TM30Status        tm30.BookingStatus `gorm:"column:tm30_status;size:32;default:PENDING" json:"tm30Status"`
	TM30SubmissionRef string             `gorm:"column:tm30_submission_ref;size:128" json:"tm30SubmissionRef,omitempty"`
	TM30LastError     string             `gorm:"column:tm30_last_error;type:text" json:"tm30LastError,omitempty"`

	Guests []Guest `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"guests,omitempty"`
}
