package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/controllers"
	"github.com/serbisyo/serbisyo-api/middleware"
)

// SetupPaymentRoutes configures checkout and the gateway callback endpoint
func SetupPaymentRoutes(app *fiber.App) {
	payment := app.Group("/payments")
	payment.Post("/checkout", middleware.Protected(), controllers.CreateCheckout)
	// The webhook is called by PayMongo, not by users
	payment.Post("/webhook", controllers.PaymentWebhook)
}
