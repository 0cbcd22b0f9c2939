package models

import (
	"gorm.io/gorm"
)

// Customer is the booking owner. PortalToken identifies them on guest-facing
// endpoints (passport upload, status view) without a full account.
type Customer struct {
	gorm.Model

	FullName string `json:"fullName"`
	Email    string `json:"email"`

	PortalToken string `gorm:"uniqueIndex;size:128" json:"-"`
}
