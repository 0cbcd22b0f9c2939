package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/utils"
)

type PropertyController struct {
	DB *gorm.DB
}

func NewPropertyController(db *gorm.DB) *PropertyController {
	return &PropertyController{DB: db}
}

func (pc *PropertyController) Create(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(property.Name) == "" {
		utils.JSONError(c, http.StatusBadRequest, "name is required")
		return
	}

	if err := pc.DB.Create(&property).Error; err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, property)
}

func (pc *PropertyController) List(c *gin.Context) {
	var properties []models.Property
	if err := pc.DB.Order("id ASC").Find(&properties).Error; err != nil {
		utils.JSONError(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONSuccess(c, http.StatusOK, properties)
}

type tm30RegistrationPayload struct {
	AccomID   string `json:"accommodationId" binding:"required"`
	AccomName string `json:"accommodationName" binding:"required"`
}

// RegisterTM30 handles PUT /api/properties/:id/tm30-registration — binds the
// immigration accommodation identifier a property must carry before any of
// its bookings can be dispatched.
func (pc *PropertyController) RegisterTM30(c *gin.Context) {
	propertyID, ok := parseID(c)
	if !ok {
		return
	}

	var payload tm30RegistrationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	res := pc.DB.Model(&models.Property{}).Where("id = ?", propertyID).
		Updates(map[string]interface{}{
			"tm30_accom_id":   strings.TrimSpace(payload.AccomID),
			"tm30_accom_name": strings.TrimSpace(payload.AccomName),
		})
	if res.Error != nil {
		utils.JSONError(c, http.StatusInternalServerError, res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.JSONError(c, http.StatusNotFound, "property not found")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"registered": true})
}
