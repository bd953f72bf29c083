package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/controllers"
	"github.com/serbisyo/serbisyo-api/middleware"
)

// SetupBookingRoutes configures all booking related routes
func SetupBookingRoutes(app *fiber.App) {
	booking := app.Group("/bookings")
	booking.Get("/", controllers.GetAllBookings)
	booking.Get("/customer/:id", middleware.Protected(), controllers.GetCustomerBookings)
	booking.Get("/provider/:id", middleware.Protected(), controllers.GetProviderBookings)
	booking.Get("/:id", controllers.GetBooking)
	booking.Post("/", middleware.Protected(), controllers.CreateBooking)
	booking.Patch("/:id/status", middleware.Protected(), controllers.UpdateBookingStatus)
}
