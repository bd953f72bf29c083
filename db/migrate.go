package db

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/serbisyo/serbisyo-api/models"
)

func Migrate() {
	// Initialize DB connection
	Init()

	// Run AutoMigrate only when explicitly called
	err := DB.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Schedule{},
		&models.Booking{},
	)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	if err := EnsureSlotIndex(DB); err != nil {
		log.Fatal("Failed to create slot index: ", err)
	}

	fmt.Println("✅ Migrations applied successfully!")
}

// EnsureSlotIndex creates the partial unique index that enforces the
// one-booking-per-slot invariant at write time. Cancelled bookings are
// excluded so a released slot can be taken again.
func EnsureSlotIndex(g *gorm.DB) error {
	return g.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_provider_slot
		ON bookings (provider_id, booking_date, booking_time)
		WHERE status <> 'cancelled'
	`).Error
}
