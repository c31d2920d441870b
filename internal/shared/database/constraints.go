package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// btree_gist lets an exclusion constraint mix equality (court_id) with
	// range overlap (tsrange).
	err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist;`).Error
	if err != nil {
		return err
	}

	// The database-level guarantee against double booking: two active bookings
	// on the same court can never hold overlapping time ranges, regardless of
	// what the application-level locking missed.
	err = db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'no_overlapping_active_bookings'
			) THEN
				ALTER TABLE bookings
				ADD CONSTRAINT no_overlapping_active_bookings
				EXCLUDE USING gist (
					court_id WITH =,
					tsrange(start_datetime, end_datetime) WITH &&
				) WHERE (status IN ('pending', 'confirmed'));
			END IF;
		END
		$$;
	`).Error
	if err != nil {
		return err
	}

	// Index for slot availability queries by court and window
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_court_window
		ON bookings (court_id, start_datetime, end_datetime);
	`).Error
	if err != nil {
		return err
	}

	// Index for lifecycle sweeps filtering on status and start time
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_status_start
		ON bookings (status, start_datetime);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
