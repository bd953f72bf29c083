package models

import (
	"time"

	"gorm.io/gorm"
)

// Service is a catalog record owned by an external collaborator; the booking
// core reads it for the price a payment is fixed at and the duration slots
// are generated with.
type Service struct {
	gorm.Model
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration"`
	Price       float64       `json:"price"`
	ProviderID  uint          `json:"provider_id"`
	Provider    User          `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
}
