package models

import (
	"time"
)

// User covers both customers and service providers. Accounts live in the
// external auth service; this table holds the display metadata the booking
// core needs for lookups and notification emails.
type User struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name"`
	Email            string     `json:"email" gorm:"unique"`
	Role             string     `json:"role"` // "customer" or "provider"
	ProvidedServices []Service  `json:"provided_services,omitempty" gorm:"foreignKey:ProviderID"`
	Bookings         []Booking  `json:"bookings,omitempty" gorm:"foreignKey:ProviderID"`
	CustomerBookings []Booking  `json:"customer_bookings,omitempty" gorm:"foreignKey:CustomerID"`
	Schedules        []Schedule `json:"schedules,omitempty" gorm:"foreignKey:ProviderID"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
