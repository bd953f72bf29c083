package controllers

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
	"github.com/serbisyo/serbisyo-api/paymongo"
	"github.com/serbisyo/serbisyo-api/redis"
	"github.com/serbisyo/serbisyo-api/utils"
)

// Gateway is swapped out in tests; production uses the real PayMongo client.
var Gateway interface {
	CreateCheckoutSession(amount float64, description string) (*paymongo.CheckoutSession, error)
} = paymongo.NewClient()

// CheckoutExpiry is the window a checkout session may stay pending without a
// gateway callback before it is treated as abandoned.
func CheckoutExpiry() time.Duration {
	if v := os.Getenv("CHECKOUT_EXPIRY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return 30 * time.Minute
}

type CheckoutRequest struct {
	ServiceID   uint   `json:"service_id"`
	Description string `json:"description"`
}

// CreateCheckout godoc
// @Summary Open a GCash checkout session for a service
// @Tags payments
// @Accept json
// @Produce json
// @Param checkout body CheckoutRequest true "Checkout"
// @Success 200 {object} paymongo.CheckoutSession
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /payments/checkout [post]
func CreateCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "Failed to parse request body",
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

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("SerbisYo service: %s", service.Name)
	}

	session, err := Gateway.CreateCheckoutSession(service.Price, description)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(utils.ErrorResponse{
			Message: "Payment gateway rejected the checkout",
			Error:   err.Error(),
		})
	}

	rememberCheckoutSession(session.IntentID)

	return c.JSON(fiber.Map{
		"intent_id":          session.IntentID,
		"checkout_url":       session.CheckoutURL,
		"expires_in_minutes": int(CheckoutExpiry().Minutes()),
	})
}

// PaymentWebhook godoc
// @Summary Gateway callback endpoint
// @Description Reconciles an asynchronous PayMongo outcome to its booking.
// @Tags payments
// @Accept json
// @Success 200
// @Failure 400 {object} utils.ErrorResponse
// @Router /payments/webhook [post]
func PaymentWebhook(c *fiber.Ctx) error {
	eventID, intentID, success, err := paymongo.ParseEvent(c.Body())
	if err != nil {
		// Unknown event kinds are acknowledged so the gateway stops retrying
		log.Printf("webhook skipped: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	if seenWebhookEvent(eventID) {
		log.Printf("webhook event %s already processed, discarding", eventID)
		return c.SendStatus(fiber.StatusOK)
	}

	if err := ReconcilePayment(intentID, success); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to reconcile payment",
			Error:   err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

// ReconcilePayment applies a gateway outcome to the booking holding the
// intent id. The guarded UPDATE only moves a pending payment, so duplicate
// callbacks are no-ops and a completed payment is never downgraded by a stale
// failure. The booking's own status is untouched; a failed payment leaves it
// pending so the customer can retry checkout.
func ReconcilePayment(intentID string, success bool) error {
	outcome := models.PaymentFailed
	if success {
		outcome = models.PaymentCompleted
	}

	res := db.DB.Model(&models.Booking{}).
		Where("payment_intent_id = ? AND payment_status = ?", intentID, models.PaymentPending).
		Update("payment_status", outcome)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("payment callback for intent %s ignored (unknown or already settled)", intentID)
		return nil
	}

	log.Printf("payment for intent %s reconciled to %s", intentID, outcome)
	return nil
}

// CheckoutSessionActive reports whether a checkout session is still inside
// its expiry window. Without Redis the window is enforced only by the cron
// sweeper, so sessions are assumed live here.
func CheckoutSessionActive(intentID string) bool {
	if redis.Client == nil {
		return true
	}
	n, err := redis.Client.Exists(redis.Ctx, checkoutKey(intentID)).Result()
	if err != nil {
		log.Printf("redis lookup for checkout %s failed: %v", intentID, err)
		return true
	}
	return n > 0
}

func rememberCheckoutSession(intentID string) {
	if redis.Client == nil {
		return
	}
	if err := redis.Client.Set(redis.Ctx, checkoutKey(intentID), "pending", CheckoutExpiry()).Err(); err != nil {
		log.Printf("failed to record checkout session %s: %v", intentID, err)
	}
}

// seenWebhookEvent marks an event id as handled; duplicates within the
// retention window short-circuit before touching the DB. Reconciliation is
// idempotent anyway, this just keeps the log quiet.
func seenWebhookEvent(eventID string) bool {
	if redis.Client == nil || eventID == "" {
		return false
	}
	ok, err := redis.Client.SetNX(redis.Ctx, "webhook:"+eventID, "1", 24*time.Hour).Result()
	if err != nil {
		log.Printf("redis dedupe for event %s failed: %v", eventID, err)
		return false
	}
	return !ok
}

func checkoutKey(intentID string) string {
	return "checkout:" + intentID
}
