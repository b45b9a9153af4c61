package database

import (
	"fmt"

	"gorm.io/gorm"
)

// constraintStatements are PostgreSQL-only guards that back the lifecycle invariants
var constraintStatements = []string{
	// Stay dates must be ordered
	`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS chk_bookings_dates`,
	`ALTER TABLE bookings ADD CONSTRAINT chk_bookings_dates CHECK (check_in < check_out)`,

	// Money never goes negative and returns never exceed what was paid
	`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS chk_bookings_amounts`,
	`ALTER TABLE bookings ADD CONSTRAINT chk_bookings_amounts CHECK (
		total_amount >= 0 AND amount_paid >= 0 AND amount_refunded >= 0 AND amount_credited >= 0
		AND amount_refunded + amount_credited <= amount_paid
	)`,

	`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS chk_bookings_status`,
	`ALTER TABLE bookings ADD CONSTRAINT chk_bookings_status CHECK (
		status IN ('pending', 'confirmed', 'checked_in', 'completed', 'cancelled', 'no_show')
	)`,

	`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS chk_bookings_payment_status`,
	`ALTER TABLE bookings ADD CONSTRAINT chk_bookings_payment_status CHECK (
		payment_status IN ('unpaid', 'partially_paid', 'paid', 'refunded', 'partially_refunded')
	)`,

	// At most one open refund request per booking
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_refund_requests_open
		ON refund_requests (booking_id) WHERE status IN ('requested', 'approved')`,

	// Sweeps scan by status and date
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_check_in ON bookings (status, check_in)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_check_out ON bookings (status, check_out)`,

	// Each room can be reserved at most once per booking
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_booking_rooms_room ON booking_rooms (booking_id, room_id)`,
}

// MigrateConstraints adds the database constraints AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}
	return nil
}
