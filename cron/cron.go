package cron

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/serbisyo/serbisyo-api/controllers"
	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
	"github.com/serbisyo/serbisyo-api/utils"
)

// StartCronJobs initializes and starts the background scheduler.
func StartCronJobs() {
	c := cron.New()
	// Abandon gcash checkouts that never got a gateway callback
	_, err := c.AddFunc("* * * * *", sweepExpiredCheckouts)
	if err != nil {
		log.Fatalf("Failed to add checkout sweeper job: %v", err)
	}
	// Remind customers an hour before their booking
	_, err = c.AddFunc("* * * * *", sendBookingReminders)
	if err != nil {
		log.Fatalf("Failed to add reminder job: %v", err)
	}
	c.Start()
	log.Println("Cron job scheduler started")
}

func sweepExpiredCheckouts() {
	n, err := CancelExpiredCheckouts(db.DB, controllers.CheckoutExpiry())
	if err != nil {
		log.Printf("Error sweeping expired checkouts: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Cancelled %d bookings with expired checkouts", n)
	}
}

// CancelExpiredCheckouts cancels pending gcash bookings whose checkout
// received no callback within the window, releasing their slots. Cancelling
// goes through the state machine so the usual side effects apply.
func CancelExpiredCheckouts(g *gorm.DB, window time.Duration) (int, error) {
	cutoff := time.Now().Add(-window)

	var ids []uint
	err := g.Model(&models.Booking{}).
		Where("status = ? AND payment_method = ? AND payment_status = ? AND created_at < ?",
			models.StatusPending, models.PaymentGCash, models.PaymentPending, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, id := range ids {
		swept, err := sweepCheckout(g, id)
		if err != nil {
			log.Printf("Failed to cancel expired booking %d: %v", id, err)
			continue
		}
		if swept {
			cancelled++
		}
	}
	return cancelled, nil
}

// sweepCheckout cancels one expired-checkout booking. The row is re-read
// under a lock inside the transaction and the guard re-checked there: a
// success webhook may settle the payment between the sweep query and the
// cancel, and a settled payment must never be written back to pending.
func sweepCheckout(g *gorm.DB, id uint) (bool, error) {
	swept := false
	err := g.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
			return err
		}
		if booking.Status != models.StatusPending || booking.Payment.Status != models.PaymentPending {
			return nil // settled or moved on since the sweep query, leave it alone
		}
		if err := booking.Transition(tx, models.ActionCancel); err != nil {
			return err
		}
		swept = true
		return nil
	})
	return swept, err
}

// sendBookingReminders emails customers whose confirmed booking starts in
// about an hour.
func sendBookingReminders() {
	loc := utils.LocalZone()
	now := time.Now().In(loc)
	today := now.Format(utils.DateLayout)
	windowStart := now.Add(55 * time.Minute)
	windowEnd := now.Add(65 * time.Minute)
	if windowEnd.Format(utils.DateLayout) != today {
		return // window crosses midnight, tomorrow's run handles it
	}

	var bookings []models.Booking
	err := db.DB.Preload("Customer").Preload("Service").Preload("Provider").
		Where("status = ? AND booking_date = ? AND booking_time BETWEEN ? AND ?",
			models.StatusConfirmed, today,
			windowStart.Format(utils.TimeLayout), windowEnd.Format(utils.TimeLayout)).
		Find(&bookings).Error
	if err != nil {
		log.Printf("Error fetching bookings for reminders: %v", err)
		return
	}

	for _, booking := range bookings {
		if err := sendReminderEmail(&booking); err != nil {
			log.Printf("Failed to send reminder for booking %d: %v", booking.ID, err)
			continue
		}
		log.Printf("Sent reminder for booking %d to %s", booking.ID, booking.Customer.Email)
	}
}

// sendReminderEmail constructs and sends the reminder email
func sendReminderEmail(booking *models.Booking) error {
	subject := fmt.Sprintf("Reminder: Upcoming Booking - %s", booking.Service.Name)
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your booking scheduled in one hour.</p>
		<ul>
			<li><strong>Service:</strong> %s</li>
			<li><strong>Provider:</strong> %s</li>
			<li><strong>Date:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
		</ul>
		<p>If you need to cancel, please do so as soon as possible.</p>
		<p>Best regards,</p>
		<p>The SerbisYo Team</p>
	`, booking.Customer.Name, booking.Service.Name, booking.Provider.Name,
		booking.BookingDate, booking.BookingTime)

	return utils.SendEmail(booking.Customer.Email, subject, body)
}
