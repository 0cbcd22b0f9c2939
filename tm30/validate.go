package tm30

import (
	"errors"
	"strings"
	"time"
)

// ExtractedPassport holds the structured fields coming out of OCR or a manual
// correction, before they are written onto a guest record.
type ExtractedPassport struct {
	FirstName      string
	LastName       string
	FullName       string
	DateOfBirth    *time.Time
	Nationality    string
	Gender         string
	PassportNumber string
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	IssuingCountry string
	Confidence     float64
}

var (
	ErrMissingPassportNumber = errors.New("missing_passport_number")
	ErrImplausibleBirthDate  = errors.New("implausible_birth_date")
	ErrExpiryBeforeIssue     = errors.New("expiry_before_issue")
)

// NormalizeGender maps free-form gender values to the two-letter wire code.
// "F"/"Female" (any case) -> "F", everything else -> "M".
func NormalizeGender(g string) string {
	switch strings.ToUpper(strings.TrimSpace(g)) {
	case "F", "FEMALE":
		return "F"
	}
	return "M"
}

// Validate checks completeness and plausibility of the extracted fields,
// independent of storage. Optional fields never fail the whole record; they
// are defaulted at payload-build time instead.
func (p *ExtractedPassport) Validate() error {
	if strings.TrimSpace(p.PassportNumber) == "" {
		return ErrMissingPassportNumber
	}
	if p.DateOfBirth != nil {
		if p.DateOfBirth.After(time.Now()) || p.DateOfBirth.Year() < 1900 {
			return ErrImplausibleBirthDate
		}
	}
	if p.IssueDate != nil && p.ExpiryDate != nil && p.ExpiryDate.Before(*p.IssueDate) {
		return ErrExpiryBeforeIssue
	}
	return nil
}

// Normalize trims and canonicalizes fields in place. FullName is derived when
// only the name parts were extracted.
func (p *ExtractedPassport) Normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.FullName = strings.TrimSpace(p.FullName)
	p.PassportNumber = strings.ToUpper(strings.TrimSpace(p.PassportNumber))
	p.Nationality = strings.TrimSpace(p.Nationality)
	p.IssuingCountry = strings.ToUpper(strings.TrimSpace(p.IssuingCountry))
	p.Gender = NormalizeGender(p.Gender)

	if p.FullName == "" {
		p.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
}

// FromOCRFields maps the raw AIGEN field map into an ExtractedPassport. The
// OCR payload uses snake_case keys; a handful of aliases are accepted because
// the provider renamed fields between model versions.
func FromOCRFields(fields map[string]interface{}, confidence float64) ExtractedPassport {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := fields[k]; ok && v != nil {
				if s, ok2 := v.(string); ok2 {
					s = strings.TrimSpace(s)
					if s != "" {
						return s
					}
				}
			}
		}
		return ""
	}

	p := ExtractedPassport{
		FirstName:      get("first_name", "given_name", "given_names"),
		LastName:       get("last_name", "surname"),
		FullName:       get("full_name", "name"),
		Nationality:    get("nationality"),
		Gender:         get("gender", "sex"),
		PassportNumber: get("passport_number", "document_number"),
		IssuingCountry: get("issuing_country", "country_code", "issuing_state"),
		Confidence:     confidence,
	}
	p.DateOfBirth = parseOCRDate(get("date_of_birth", "birth_date", "dob"))
	p.IssueDate = parseOCRDate(get("date_of_issue", "issue_date"))
	p.ExpiryDate = parseOCRDate(get("date_of_expiry", "expiry_date", "expiration_date"))
	p.Normalize()
	return p
}

// parseOCRDate accepts the formats AIGEN has been seen returning.
func parseOCRDate(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02 Jan 2006", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			tt := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &tt
		}
	}
	return nil
}
