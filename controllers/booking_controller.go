package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/services"
	"rental-backend/utils"
)

type BookingController struct {
	BookingSvc *services.BookingService
}

func NewBookingController(svc *services.BookingService) *BookingController {
	return &BookingController{BookingSvc: svc}
}

// Create handles POST /api/bookings. One guest row is pre-created per
// expected occupant; the response includes the owner's portal token so the
// platform can hand it to the customer.
func (bc *BookingController) Create(c *gin.Context) {
	var payload services.CreateBookingInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := bc.BookingSvc.Create(payload)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPropertyNotFound):
			utils.JSONError(c, http.StatusNotFound, "property not found")
		case errors.Is(err, services.ErrInvalidStay):
			utils.JSONError(c, http.StatusBadRequest, "checkOut must be after checkIn")
		default:
			utils.JSONError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.JSONSuccess(c, http.StatusCreated, gin.H{
		"booking":     booking,
		"portalToken": booking.Customer.PortalToken,
	})
}

func (bc *BookingController) Get(c *gin.Context) {
	bookingID, ok := parseID(c)
	if !ok {
		return
	}
	booking, err := bc.BookingSvc.GetByID(bookingID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "booking not found")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (bc *BookingController) List(c *gin.Context) {
	bookings, err := bc.BookingSvc.List()
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, bookings)
}

// Confirm handles POST /api/bookings/:id/confirm.
func (bc *BookingController) Confirm(c *gin.Context) {
	bookingID, ok := parseID(c)
	if !ok {
		return
	}
	if err := bc.BookingSvc.Confirm(bookingID); err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"confirmed": true})
}
