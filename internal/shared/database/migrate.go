package database

import (
	"staydesk/internal/auth"
	"staydesk/internal/bookings"

	"gorm.io/gorm"
)

// Migrate creates or updates the account and lifecycle tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&auth.Account{},
		&bookings.Booking{},
		&bookings.BookingRoom{},
		&bookings.RefundRequest{},
		&bookings.CreditNote{},
		&bookings.StatusTransition{},
	)
}
