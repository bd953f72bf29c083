package controllers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
	"github.com/serbisyo/serbisyo-api/utils"
)

type CreateBookingRequest struct {
	ProviderID      uint                 `json:"provider_id"`
	CustomerID      uint                 `json:"customer_id"`
	ServiceID       uint                 `json:"service_id"`
	BookingDate     string               `json:"booking_date"`
	BookingTime     string               `json:"booking_time"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	PaymentIntentID string               `json:"payment_intent_id"`
	Note            string               `json:"note"`
}

// CreateBooking godoc
// @Summary Book a slot with a provider
// @Tags bookings
// @Accept json
// @Produce json
// @Param booking body CreateBookingRequest true "Booking"
// @Success 201 {object} models.Booking
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /bookings [post]
func CreateBooking(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "Failed to parse request body",
			Error:   err.Error(),
		})
	}

	if req.PaymentMethod != models.PaymentCash && req.PaymentMethod != models.PaymentGCash {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "payment_method must be cash or gcash",
		})
	}
	if _, err := time.Parse(utils.DateLayout, req.BookingDate); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "booking_date must be YYYY-MM-DD",
			Error:   err.Error(),
		})
	}
	if _, err := utils.MinuteOfDay(req.BookingTime); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "booking_time must be HH:MM",
			Error:   err.Error(),
		})
	}

	var service models.Service
	if err := db.DB.First(&service, req.ServiceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Service not found",
			Error:   err.Error(),
		})
	}
	if service.ProviderID != req.ProviderID {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "Service does not belong to this provider",
		})
	}
	slotDur := service.Duration
	if slotDur <= 0 {
		slotDur = time.Hour
	}

	// For GCash the checkout session must already exist; its id is the link
	// the webhook reconciles through.
	if req.PaymentMethod == models.PaymentGCash {
		if req.PaymentIntentID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
				Message: "payment_intent_id is required for gcash bookings",
			})
		}
		if !CheckoutSessionActive(req.PaymentIntentID) {
			return c.Status(fiber.StatusGone).JSON(utils.ErrorResponse{
				Message: "Checkout session has expired, start a new checkout",
				Error:   models.ErrCheckoutExpired.Error(),
			})
		}
	}

	booking := models.Booking{
		ProviderID:  req.ProviderID,
		CustomerID:  req.CustomerID,
		ServiceID:   req.ServiceID,
		BookingDate: req.BookingDate,
		BookingTime: req.BookingTime,
		Status:      models.StatusPending,
		Note:        req.Note,
		Payment: models.Payment{
			Amount:   service.Price,
			Method:   req.PaymentMethod,
			Status:   models.PaymentPending,
			IntentID: req.PaymentIntentID,
		},
	}

	// Re-check at commit time instead of trusting an earlier read. This also
	// rejects slots that left the schedule since the customer last looked.
	open, err := utils.SlotOpen(req.ProviderID, req.BookingDate, req.BookingTime, slotDur, SlotGranularity())
	if err != nil {
		if errors.Is(err, models.ErrProviderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
				Message: "Provider not found",
				Error:   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to check availability",
			Error:   err.Error(),
		})
	}
	if !open {
		return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
			Message: "Time slot is not available, refresh availability and pick again",
			Error:   models.ErrSlotUnavailable.Error(),
		})
	}

	// The insert is the exclusion point: the partial unique index on
	// (provider, date, time) decides a race between two creators, no lock is
	// held around it.
	if err := db.DB.Create(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
				Message: "Time slot is not available, refresh availability and pick again",
				Error:   models.ErrSlotUnavailable.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to create booking",
			Error:   err.Error(),
		})
	}

	sendBookingEmails(&booking, &service)

	return c.Status(fiber.StatusCreated).JSON(booking)
}

type UpdateStatusRequest struct {
	Action models.TransitionAction `json:"action"`
}

// UpdateBookingStatus godoc
// @Summary Apply a state-machine action to a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param action body UpdateStatusRequest true "confirm | start | complete | cancel"
// @Success 200 {object} models.Booking
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /bookings/{id}/status [patch]
func UpdateBookingStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "Failed to parse request body",
			Error:   err.Error(),
		})
	}

	var booking models.Booking
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		// Locked read: Transition ends in a full-row save, so a payment
		// callback committing in between must not be overwritten.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, id).Error; err != nil {
			return err
		}
		return booking.Transition(tx, req.Action)
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
				Message: "Booking not found",
				Error:   err.Error(),
			})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
				Message: "Invalid status transition",
				Error:   err.Error(),
			})
		case errors.Is(err, models.ErrPaymentNotSettled):
			return c.Status(fiber.StatusConflict).JSON(utils.ErrorResponse{
				Message: "E-wallet payment is not settled yet",
				Error:   err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
				Message: "Failed to update booking status",
				Error:   err.Error(),
			})
		}
	}

	return c.JSON(booking)
}

// GetBooking godoc
// @Summary Get a booking by ID
// @Tags bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} utils.ErrorResponse
// @Router /bookings/{id} [get]
func GetBooking(c *fiber.Ctx) error {
	id := c.Params("id")
	var booking models.Booking
	if err := db.DB.Preload("Service").Preload("Provider").Preload("Customer").First(&booking, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Booking not found",
			Error:   err.Error(),
		})
	}
	return c.JSON(booking)
}

// GetAllBookings godoc
// @Summary Get all bookings
// @Tags bookings
// @Produce json
// @Success 200 {array} models.Booking
// @Failure 500 {object} utils.ErrorResponse
// @Router /bookings [get]
func GetAllBookings(c *fiber.Ctx) error {
	var bookings []models.Booking
	if err := db.DB.Preload("Service").Preload("Provider").Preload("Customer").Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch bookings",
			Error:   err.Error(),
		})
	}
	return c.JSON(bookings)
}

// GetCustomerBookings returns a customer's bookings, newest first.
func GetCustomerBookings(c *fiber.Ctx) error {
	id := c.Params("id")
	var bookings []models.Booking
	if err := db.DB.Preload("Service").Preload("Provider").
		Where("customer_id = ?", id).
		Order("booking_date desc, booking_time desc").
		Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch bookings",
			Error:   err.Error(),
		})
	}
	return c.JSON(bookings)
}

// GetProviderBookings returns a provider's bookings with an optional status
// filter, soonest first.
func GetProviderBookings(c *fiber.Ctx) error {
	id := c.Params("id")
	query := db.DB.Preload("Service").Preload("Customer").Where("provider_id = ?", id)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := query.Order("booking_date asc, booking_time asc").Find(&bookings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch bookings",
			Error:   err.Error(),
		})
	}
	return c.JSON(bookings)
}

func sendBookingEmails(booking *models.Booking, service *models.Service) {
	var customer, provider models.User
	if err := db.DB.First(&customer, booking.CustomerID).Error; err != nil {
		log.Printf("booking %d: customer %d not found for email: %v", booking.ID, booking.CustomerID, err)
		return
	}
	if err := db.DB.First(&provider, booking.ProviderID).Error; err != nil {
		log.Printf("booking %d: provider %d not found for email: %v", booking.ID, booking.ProviderID, err)
		return
	}

	when := fmt.Sprintf("%s %s", booking.BookingDate, booking.BookingTime)
	customerBody := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your booking has been created and is awaiting the provider's confirmation.</p>
		<ul>
			<li><strong>Service:</strong> %s</li>
			<li><strong>Provider:</strong> %s</li>
			<li><strong>Schedule:</strong> %s</li>
			<li><strong>Payment:</strong> %s</li>
		</ul>
		<p>Best regards,</p>
		<p>The SerbisYo Team</p>
	`, customer.Name, service.Name, provider.Name, when, booking.Payment.Method)
	if err := utils.SendEmail(customer.Email, "Booking Created", customerBody); err != nil {
		log.Printf("booking %d: failed to email customer: %v", booking.ID, err)
	}

	providerBody := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You have a new booking waiting for confirmation.</p>
		<ul>
			<li><strong>Service:</strong> %s</li>
			<li><strong>Customer:</strong> %s</li>
			<li><strong>Schedule:</strong> %s</li>
			<li><strong>Payment:</strong> %s</li>
		</ul>
		<p>Best regards,</p>
		<p>The SerbisYo Team</p>
	`, provider.Name, service.Name, customer.Name, when, booking.Payment.Method)
	if err := utils.SendEmail(provider.Email, "New Booking Received", providerBody); err != nil {
		log.Printf("booking %d: failed to email provider: %v", booking.ID, err)
	}
}
