package utils

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
)

// DayAvailability is one resolved calendar date with its open slot starts.
// Slots exist only in resolver responses, they are never persisted.
type DayAvailability struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// SlotStarts generates candidate slot start times for one schedule window.
// Starts are spaced by granularity from the window start; a start is only a
// candidate while start+slotDur still fits inside the window.
func SlotStarts(window models.Schedule, slotDur, granularity time.Duration) []string {
	start, err := MinuteOfDay(window.StartTime)
	if err != nil {
		return nil
	}
	end, err := MinuteOfDay(window.EndTime)
	if err != nil || end <= start {
		return nil
	}

	durMin := int(slotDur.Minutes())
	stepMin := int(granularity.Minutes())
	if durMin <= 0 || stepMin <= 0 {
		return nil
	}

	var slots []string
	for t := start; t+durMin <= end; t += stepMin {
		slots = append(slots, ClockString(t))
	}
	return slots
}

// ResolveAvailability computes the open slots for every date in [from, to].
// It subtracts non-cancelled bookings from the provider's enabled weekly
// windows. Dates already past in the local zone are skipped; dates with no
// enabled windows or fully booked yield an empty slot list. Pure read, safe
// to call concurrently.
func ResolveAvailability(providerID uint, from, to string, slotDur, granularity time.Duration) ([]DayAvailability, error) {
	fromDate, err := time.Parse(DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: bad from date %q", models.ErrInvalidRange, from)
	}
	toDate, err := time.Parse(DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: bad to date %q", models.ErrInvalidRange, to)
	}
	if fromDate.After(toDate) {
		return nil, models.ErrInvalidRange
	}

	var provider models.User
	if err := db.DB.First(&provider, providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrProviderNotFound
		}
		return nil, err
	}

	var schedules []models.Schedule
	if err := db.DB.Where("provider_id = ? AND available = ?", providerID, true).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	windowsByDay := make(map[models.DayOfWeek][]models.Schedule)
	for _, s := range schedules {
		windowsByDay[s.DayOfWeek] = append(windowsByDay[s.DayOfWeek], s)
	}

	// Occupied slot starts per date, cancelled bookings excluded
	var bookings []models.Booking
	if err := db.DB.
		Where("provider_id = ? AND booking_date BETWEEN ? AND ? AND status <> ?",
			providerID, from, to, models.StatusCancelled).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	occupied := make(map[string]map[string]bool)
	for _, b := range bookings {
		if occupied[b.BookingDate] == nil {
			occupied[b.BookingDate] = make(map[string]bool)
		}
		occupied[b.BookingDate][b.BookingTime] = true
	}

	today := Today()
	var days []DayAvailability
	for d := fromDate; !d.After(toDate); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		if date < today {
			continue // never resolve past availability
		}

		seen := make(map[string]bool)
		slots := []string{}
		for _, window := range windowsByDay[models.DayOfWeek(d.Weekday())] {
			for _, slot := range SlotStarts(window, slotDur, granularity) {
				if seen[slot] || occupied[date][slot] {
					continue
				}
				seen[slot] = true
				slots = append(slots, slot)
			}
		}
		sort.Strings(slots)
		days = append(days, DayAvailability{Date: date, Slots: slots})
	}

	return days, nil
}

// SlotOpen reports whether one specific slot is currently in the resolver's
// output. Booking creation re-checks with this at commit time instead of
// trusting an earlier availability read.
func SlotOpen(providerID uint, date, slot string, slotDur, granularity time.Duration) (bool, error) {
	days, err := ResolveAvailability(providerID, date, date, slotDur, granularity)
	if err != nil {
		return false, err
	}
	for _, day := range days {
		for _, s := range day.Slots {
			if day.Date == date && s == slot {
				return true, nil
			}
		}
	}
	return false, nil
}
