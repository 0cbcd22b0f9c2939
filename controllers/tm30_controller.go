package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rental-backend/services"
	"rental-backend/utils"
)

// TM30Controller exposes the dispatch, scheduler-trigger, callback and status
// endpoints of the registration pipeline.
type TM30Controller struct {
	DB           *gorm.DB
	DispatchSvc  *services.DispatchService
	SchedulerSvc *services.SchedulerService
	BookingSvc   *services.BookingService
}

func NewTM30Controller(db *gorm.DB, dispatchSvc *services.DispatchService, schedulerSvc *services.SchedulerService, bookingSvc *services.BookingService) *TM30Controller {
	return &TM30Controller{DB: db, DispatchSvc: dispatchSvc, SchedulerSvc: schedulerSvc, BookingSvc: bookingSvc}
}

type dispatchPayload struct {
	BookingID uint  `json:"bookingId" binding:"required"`
	GuestID   *uint `json:"guestId"`
	DryRun    bool  `json:"dryRun"`
}

// Dispatch handles POST /api/tm30/dispatch. Admin only.
func (tc *TM30Controller) Dispatch(c *gin.Context) {
	var payload dispatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := tc.DispatchSvc.Dispatch(c.Request.Context(), payload.BookingID, services.DispatchOptions{
		GuestID: payload.GuestID,
		DryRun:  payload.DryRun,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			utils.JSONError(c, http.StatusNotFound, "booking not found")
		case errors.Is(err, services.ErrNoAccommodation):
			utils.JSONError(c, http.StatusUnprocessableEntity, "property has no TM30 accommodation registered")
		case errors.Is(err, services.ErrNothingEligible):
			utils.JSONError(c, http.StatusUnprocessableEntity, "no eligible guests to submit")
		case errors.Is(err, services.ErrDispatchInFlight):
			utils.JSONError(c, http.StatusConflict, "a dispatch for this booking is already in flight")
		case errors.Is(err, services.ErrBookingNotReady):
			utils.JSONError(c, http.StatusConflict, "booking is not ready for dispatch")
		case errors.Is(err, services.ErrDispatchFailed):
			// Structured failure: booking reverted, error recorded.
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error":   err.Error(),
				"data":    result,
			})
		default:
			utils.JSONError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.JSONSuccess(c, http.StatusOK, result)
}

// RunDaily handles POST /api/tm30/run-daily, invoked by the external
// time-based trigger. Auth happens in middleware (bearer cron secret).
func (tc *TM30Controller) RunDaily(c *gin.Context) {
	outcomes, err := tc.SchedulerSvc.RunDaily(c.Request.Context(), time.Now())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"processed": len(outcomes),
		"outcomes":  outcomes,
	})
}

// Callback handles POST /api/tm30/callback — the executor's asynchronous
// status report. Internal key only.
func (tc *TM30Controller) Callback(c *gin.Context) {
	var payload services.CallbackInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := tc.DispatchSvc.HandleCallback(payload); err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found")
			return
		}
		utils.JSONError(c, http.StatusConflict, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"applied": true})
}

// Status handles GET /api/bookings/:id/tm30 — the read-only compliance view.
// Restricted to the booking owner or an administrative role.
func (tc *TM30Controller) Status(c *gin.Context) {
	bookingID, ok := parseID(c)
	if !ok {
		return
	}
	if !ownerOrAdmin(c, tc.DB, bookingID) {
		utils.JSONError(c, http.StatusForbidden, "not allowed for this booking")
		return
	}

	booking, err := tc.BookingSvc.GetByID(bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found")
		return
	}

	type guestStatus struct {
		ID               uint   `json:"id"`
		FullName         string `json:"fullName"`
		IsPrimary        bool   `json:"isPrimary"`
		TM30Status       string `json:"tm30Status"`
		PassportVerified bool   `json:"passportVerified"`
		HasPassport      bool   `json:"hasPassport"`
	}
	guests := make([]guestStatus, 0, len(booking.Guests))
	for _, g := range booking.Guests {
		guests = append(guests, guestStatus{
			ID:               g.ID,
			FullName:         g.FullName,
			IsPrimary:        g.IsPrimary,
			TM30Status:       string(g.TM30Status),
			PassportVerified: g.PassportVerified,
			HasPassport:      g.HasPassportData(),
		})
	}

	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"bookingId":         booking.ID,
		"referenceCode":     booking.ReferenceCode,
		"tm30Status":        booking.TM30Status,
		"passportsReceived": booking.PassportsReceived,
		"totalGuests":       len(booking.Guests),
		"submissionRef":     booking.TM30SubmissionRef,
		"lastError":         booking.TM30LastError,
		"guests":            guests,
	})
}
