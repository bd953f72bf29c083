package models

import (
	"gorm.io/gorm"
)

type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Schedule is one recurring weekly availability window of a provider.
// Windows are authored elsewhere; the booking core only reads them.
// At most one enabled window is authoritative per (provider, day) and
// StartTime must be before EndTime.
type Schedule struct {
	gorm.Model
	ProviderID uint      `json:"provider_id"`
	Provider   User      `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	DayOfWeek  DayOfWeek `json:"day_of_week"`
	StartTime  string    `json:"start_time"` // "HH:MM" in 24h
	EndTime    string    `json:"end_time"`   // "HH:MM" in 24h
	Available  bool      `json:"available" gorm:"default:true"`
}
