package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rental-backend/middleware"
	"rental-backend/models"
	"rental-backend/services"
	"rental-backend/tm30"
	"rental-backend/utils"
)

type GuestController struct {
	DB          *gorm.DB
	PassportSvc *services.PassportService
	GuestSvc    *services.GuestService
}

func NewGuestController(db *gorm.DB, passportSvc *services.PassportService, guestSvc *services.GuestService) *GuestController {
	return &GuestController{DB: db, PassportSvc: passportSvc, GuestSvc: guestSvc}
}

type passportUploadPayload struct {
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

// SubmitPassport handles POST /api/guests/:id/passport — the intake endpoint.
// Callable by the booking owner, an admin, or the internal webhook key.
func (gc *GuestController) SubmitPassport(c *gin.Context) {
	guestID, ok := parseID(c)
	if !ok {
		return
	}

	var payload passportUploadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	guest, err := gc.GuestSvc.GetByID(guestID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "guest not found")
		return
	}
	if !middleware.CanAccessBooking(c, gc.DB, guest.BookingID) {
		utils.JSONError(c, http.StatusForbidden, "not allowed for this booking")
		return
	}

	result, err := gc.PassportSvc.SubmitPassport(c.Request.Context(), guestID, services.PassportSubmission{
		ImageURL:    strings.TrimSpace(payload.ImageURL),
		ImageBase64: strings.TrimSpace(payload.ImageBase64),
		MimeType:    payload.MimeType,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingImage):
			utils.JSONError(c, http.StatusBadRequest, "either imageUrl or imageBase64 is required")
		case errors.Is(err, services.ErrAmbiguousImage):
			utils.JSONError(c, http.StatusBadRequest, "supply exactly one of imageUrl or imageBase64")
		case errors.Is(err, services.ErrGuestNotFound):
			utils.JSONError(c, http.StatusNotFound, "guest not found")
		case errors.Is(err, services.ErrStorageFailed):
			utils.JSONError(c, http.StatusBadGateway, err.Error())
		case errors.Is(err, tm30.ErrIllegalTransition):
			utils.JSONError(c, http.StatusConflict, "guest already submitted")
		default:
			utils.JSONError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.JSONSuccess(c, http.StatusOK, result)
}

type correctionPayload struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	FullName         string `json:"fullName"`
	DateOfBirth      string `json:"dateOfBirth"`
	Nationality      string `json:"nationality"`
	Gender           string `json:"gender"`
	PassportNumber   string `json:"passportNumber"`
	PassportIssue    string `json:"passportIssue"`
	PassportExpiry   string `json:"passportExpiry"`
	IssuingCountry   string `json:"issuingCountry"`
	PassportVerified bool   `json:"passportVerified"`
}

// Correct handles PUT /api/guests/:id/tm30 — manual field correction.
// Restricted to the booking owner or an administrative role.
func (gc *GuestController) Correct(c *gin.Context) {
	guestID, ok := parseID(c)
	if !ok {
		return
	}

	var payload correctionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	guest, err := gc.GuestSvc.GetByID(guestID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "guest not found")
		return
	}
	if !ownerOrAdmin(c, gc.DB, guest.BookingID) {
		utils.JSONError(c, http.StatusForbidden, "not allowed for this booking")
		return
	}

	fields := tm30.ExtractedPassport{
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		FullName:       payload.FullName,
		Nationality:    payload.Nationality,
		Gender:         payload.Gender,
		PassportNumber: payload.PassportNumber,
		IssuingCountry: payload.IssuingCountry,
		DateOfBirth:    parseDate(payload.DateOfBirth),
		IssueDate:      parseDate(payload.PassportIssue),
		ExpiryDate:     parseDate(payload.PassportExpiry),
	}

	updated, err := gc.GuestSvc.ManualCorrection(guestID, fields, payload.PassportVerified)
	if err != nil {
		switch {
		case errors.Is(err, tm30.ErrIllegalTransition):
			utils.JSONError(c, http.StatusConflict, "guest already submitted")
		case errors.Is(err, tm30.ErrMissingPassportNumber),
			errors.Is(err, tm30.ErrImplausibleBirthDate),
			errors.Is(err, tm30.ErrExpiryBeforeIssue):
			utils.JSONError(c, http.StatusBadRequest, err.Error())
		default:
			utils.JSONError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.JSONSuccess(c, http.StatusOK, updated)
}

// Reset handles POST /api/guests/:id/tm30/reset — the explicit administrative
// correction that returns a guest to PENDING. Admin only.
func (gc *GuestController) Reset(c *gin.Context) {
	guestID, ok := parseID(c)
	if !ok {
		return
	}
	guest, err := gc.GuestSvc.ResetStatus(guestID)
	if err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			utils.JSONError(c, http.StatusNotFound, "guest not found")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, guest)
}

// GetByBooking handles GET /api/bookings/:id/guests.
func (gc *GuestController) GetByBooking(c *gin.Context) {
	bookingID, ok := parseID(c)
	if !ok {
		return
	}
	if !ownerOrAdmin(c, gc.DB, bookingID) {
		utils.JSONError(c, http.StatusForbidden, "not allowed for this booking")
		return
	}

	guests, err := gc.GuestSvc.GetByBookingID(bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch guests")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, guests)
}

// ownerOrAdmin is the access rule for owner-facing endpoints that do not
// accept the internal key: booking owner first, then administrative role.
func ownerOrAdmin(c *gin.Context, db *gorm.DB, bookingID uint) bool {
	if pt := middleware.PortalToken(c); pt != "" {
		var count int64
		db.Model(&models.Booking{}).
			Joins("JOIN customers ON customers.id = bookings.customer_id").
			Where("bookings.id = ? AND customers.portal_token = ?", bookingID, pt).
			Count(&count)
		if count > 0 {
			return true
		}
	}
	return middleware.IsAdmin(c)
}

func parseID(c *gin.Context) (uint, bool) {
	idStr := strings.TrimSpace(c.Param("id"))
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		utils.JSONError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id64), true
}

func parseDate(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		tt := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &tt
	}
	return nil
}
