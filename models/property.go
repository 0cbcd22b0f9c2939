package models

import (
	"time"

	"gorm.io/gorm"
)

// Property is a rental listing. Only the fields the TM30 pipeline needs live
// here; listing content is managed elsewhere.
type Property struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name    string `gorm:"size:255" json:"name"`
	Address string `gorm:"type:text" json:"address"`

	// Immigration-system registration. A booking under this property is
	// dispatch-eligible only when TM30AccomID is set.
	TM30AccomID   string `gorm:"column:tm30_accom_id;size:64" json:"tm30AccomId"`
	TM30AccomName string `gorm:"column:tm30_accom_name;size:255" json:"tm30AccomName"`
}

// DispatchReady reports whether bookings under this property can be filed.
func (p *Property) DispatchReady() bool {
	return p.TM30AccomID != ""
}
