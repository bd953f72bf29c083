package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/serbisyo/serbisyo-api/cron"
	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/redis"
	"github.com/serbisyo/serbisyo-api/routes"
)

func main() {
	app := fiber.New()
	db.Init()
	if os.Getenv("REDIS_ADDR") != "" {
		redis.InitRedis()
	} else {
		log.Println("REDIS_ADDR not set, checkout session tracking disabled")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SerbisYo API")
	})
	routes.SetupAvailabilityRoutes(app)
	routes.SetupScheduleRoutes(app)
	routes.SetupBookingRoutes(app)
	routes.SetupPaymentRoutes(app)

	cron.StartCronJobs()

	if err := app.Listen(":8000"); err != nil {
		log.Fatal(err)
	}
}
