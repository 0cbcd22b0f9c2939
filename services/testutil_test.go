package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB opens gorm over a sqlmock connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm open error: %v", err)
	}
	return gdb, mock
}

func bookingColumns() []string {
	return []string{
		"id", "property_id", "customer_id", "reference_code", "status",
		"check_in", "check_out", "number_of_guests",
		"passports_received", "tm30_status", "tm30_submission_ref", "tm30_last_error",
	}
}

func guestColumns() []string {
	return []string{
		"id", "booking_id", "is_primary", "full_name", "gender", "nationality",
		"passport_number", "passport_image_url", "tm30_status",
	}
}

var (
	testCheckIn  = time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC) // 02/03/2025 ICT
	testCheckOut = time.Date(2025, 3, 5, 4, 0, 0, 0, time.UTC)   // 05/03/2025 ICT
)
