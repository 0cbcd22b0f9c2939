package models

import (
	"time"

	"gorm.io/datatypes"

	"rental-backend/tm30"
)

// Guest is one occupant of a booking requiring TM30 registration. Guests are
// owned by their booking and never outlive it.
type Guest struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	BookingID uint    `gorm:"index;column:booking_id" json:"bookingId"`
	Booking   Booking `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`

	IsPrimary bool `gorm:"column:is_primary" json:"isPrimary"`

	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	FullName    string     `json:"fullName"`
	DateOfBirth *time.Time `json:"dateOfBirth"`

	Gender      string `json:"gender"`
	Nationality string `json:"nationality"`

	PassportNumber   string     `gorm:"size:64;index" json:"passportNumber"`
	PassportIssue    *time.Time `gorm:"column:passport_issue" json:"passportIssue"`
	PassportExpiry   *time.Time `gorm:"column:passport_expiry" json:"passportExpiry"`
	IssuingCountry   string     `gorm:"size:8" json:"issuingCountry"`
	PassportImageURL string     `gorm:"column:passport_image_url;size:512" json:"passportImageUrl"`

	OCRConfidence  float64        `gorm:"column:ocr_confidence" json:"ocrConfidence"`
	OCRRaw         datatypes.JSON `gorm:"column:ocr_raw" json:"-"`
	OCRProcessedAt *time.Time     `gorm:"column:ocr_processed_at" json:"ocrProcessedAt"`

	PassportVerified bool `gorm:"column:passport_verified" json:"passportVerified"`

	TM30Status tm30.GuestStatus `gorm:"column:tm30_status;size:32;default:PENDING" json:"tm30Status"`
}

// HasPassportData reports whether the guest can be counted as "received".
func (g *Guest) HasPassportData() bool {
	return g.PassportNumber != ""
}

// Extracted rebuilds the structured passport fields from the stored columns,
// for payload building and re-validation.
func (g *Guest) Extracted() tm30.ExtractedPassport {
	return tm30.ExtractedPassport{
		FirstName:      g.FirstName,
		LastName:       g.LastName,
		FullName:       g.FullName,
		DateOfBirth:    g.DateOfBirth,
		Nationality:    g.Nationality,
		Gender:         g.Gender,
		PassportNumber: g.PassportNumber,
		IssueDate:      g.PassportIssue,
		ExpiryDate:     g.PassportExpiry,
		IssuingCountry: g.IssuingCountry,
		Confidence:     g.OCRConfidence,
	}
}

// ApplyExtracted overwrites the guest's passport fields. Re-running intake for
// a guest that already has data replaces it; no duplicate rows are created.
func (g *Guest) ApplyExtracted(p tm30.ExtractedPassport) {
	g.FirstName = p.FirstName
	g.LastName = p.LastName
	g.FullName = p.FullName
	g.DateOfBirth = p.DateOfBirth
	g.Nationality = p.Nationality
	g.Gender = p.Gender
	g.PassportNumber = p.PassportNumber
	g.PassportIssue = p.IssueDate
	g.PassportExpiry = p.ExpiryDate
	g.IssuingCountry = p.IssuingCountry
	g.OCRConfidence = p.Confidence
}
