package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/controllers"
)

// SetupScheduleRoutes configures read-only schedule routes
func SetupScheduleRoutes(app *fiber.App) {
	schedule := app.Group("/schedules")
	schedule.Get("/provider/:providerId", controllers.GetProviderSchedules)
	schedule.Get("/provider/:providerId/day/:day", controllers.GetProviderSchedulesByDay)
}
