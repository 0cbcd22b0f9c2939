package tm30

import "time"

// SubmissionPayload is the batch handed to the automation executor for one
// booking. It is ephemeral; nothing here is persisted.
type SubmissionPayload struct {
	BookingID     uint         `json:"bookingId"`
	ReferenceCode string       `json:"referenceCode"`
	AccomID       string       `json:"accommodationId"`
	AccomName     string       `json:"accommodationName"`
	DryRun        bool         `json:"dryRun"`
	Guests        []GuestEntry `json:"guests"`
}

// GuestEntry is one TM30 filing line.
type GuestEntry struct {
	GuestID        uint   `json:"guestId"`
	PassportNumber string `json:"passportNumber"`
	FullName       string `json:"fullName"`
	Nationality    string `json:"nationality"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"` // DD/MM/YYYY
	Gender         string `json:"gender"`                // M / F
	ArrivalDate    string `json:"arrivalDate"`           // DD/MM/YYYY, Bangkok local
	DepartureDate  string `json:"departureDate"`         // DD/MM/YYYY, Bangkok local
}

// BuildGuestEntry renders one filing line. Missing optional fields collapse to
// safe placeholders instead of failing the whole batch.
func BuildGuestEntry(guestID uint, p ExtractedPassport, checkIn, checkOut time.Time) GuestEntry {
	nationality := p.Nationality
	if nationality == "" {
		nationality = "Unknown"
	}
	e := GuestEntry{
		GuestID:        guestID,
		PassportNumber: p.PassportNumber,
		FullName:       p.FullName,
		Nationality:    nationality,
		Gender:         NormalizeGender(p.Gender),
		ArrivalDate:    FilingDate(checkIn),
		DepartureDate:  FilingDate(checkOut),
	}
	if p.DateOfBirth != nil {
		e.DateOfBirth = FilingDate(*p.DateOfBirth)
	}
	return e
}
