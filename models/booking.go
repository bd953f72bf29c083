package models

import (
	"fmt"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentGCash PaymentMethod = "gcash"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is embedded 1:1 in Booking. Cash is collected when the service
// completes; GCash goes through a PayMongo checkout session whose id is kept
// in IntentID so the asynchronous webhook can be reconciled back to the
// booking.
type Payment struct {
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Status    PaymentStatus `json:"status"`
	IntentID  string        `json:"intent_id,omitempty"`
	RefundDue bool          `json:"refund_due"`
}

type Booking struct {
	gorm.Model
	ProviderID  uint          `json:"provider_id"`
	Provider    User          `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	CustomerID  uint          `json:"customer_id"`
	Customer    User          `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	ServiceID   uint          `json:"service_id"`
	Service     Service       `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	BookingDate string        `json:"booking_date"` // "2006-01-02"
	BookingTime string        `json:"booking_time"` // "HH:MM", matches a generated slot
	Status      BookingStatus `json:"status"`
	Note        string        `json:"note"`
	Payment     Payment       `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.Status == "" {
		b.Status = StatusPending
	}
	if b.Payment.Status == "" {
		b.Payment.Status = PaymentPending
	}
	return nil
}

type TransitionAction string

const (
	ActionConfirm  TransitionAction = "confirm"
	ActionStart    TransitionAction = "start"
	ActionComplete TransitionAction = "complete"
	ActionCancel   TransitionAction = "cancel"
)

// Transition applies one state-machine action to the booking and saves it
// inside the given transaction. Any action not in the table returns
// ErrInvalidTransition and leaves the booking untouched.
//
//	pending   -> confirmed (confirm) | cancelled (cancel)
//	confirmed -> in_progress (start) | cancelled (cancel)
//	in_progress -> completed (complete)
//
// Completing a cash booking is the point where the payment itself completes;
// completing a GCash booking requires the payment to be settled already.
// Cancelling a booking whose payment was already collected flags the payment
// for an external refund.
func (b *Booking) Transition(tx *gorm.DB, action TransitionAction) error {
	switch action {
	case ActionConfirm:
		if b.Status != StatusPending {
			return fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidTransition, b.Status)
		}
		b.Status = StatusConfirmed
	case ActionStart:
		if b.Status != StatusConfirmed {
			return fmt.Errorf("%w: cannot start a %s booking", ErrInvalidTransition, b.Status)
		}
		b.Status = StatusInProgress
	case ActionComplete:
		if b.Status != StatusInProgress {
			return fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidTransition, b.Status)
		}
		if b.Payment.Method == PaymentGCash && b.Payment.Status != PaymentCompleted {
			return ErrPaymentNotSettled
		}
		if b.Payment.Method == PaymentCash {
			b.Payment.Status = PaymentCompleted
		}
		b.Status = StatusCompleted
	case ActionCancel:
		if b.Status != StatusPending && b.Status != StatusConfirmed {
			return fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidTransition, b.Status)
		}
		if b.Payment.Status == PaymentCompleted {
			b.Payment.RefundDue = true
		}
		b.Status = StatusCancelled
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	return tx.Save(b).Error
}
