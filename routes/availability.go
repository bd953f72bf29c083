package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/controllers"
)

// SetupAvailabilityRoutes configures the availability resolver route
func SetupAvailabilityRoutes(app *fiber.App) {
	app.Get("/availability", controllers.GetAvailability)
}
