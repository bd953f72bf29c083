package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
	"github.com/serbisyo/serbisyo-api/utils"
)

// Schedules are authored in the provider console; the booking core only
// exposes reads.

// GetProviderSchedules returns every weekly window of a provider.
func GetProviderSchedules(c *fiber.Ctx) error {
	providerID := c.Params("providerId")

	var provider models.User
	if err := db.DB.First(&provider, providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Provider not found",
			Error:   err.Error(),
		})
	}

	var schedules []models.Schedule
	if err := db.DB.Where("provider_id = ?", providerID).
		Order("day_of_week asc, start_time asc").
		Find(&schedules).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch schedules",
			Error:   err.Error(),
		})
	}
	return c.JSON(schedules)
}

// GetProviderSchedulesByDay returns the enabled windows for one day of week
// (0 = Sunday .. 6 = Saturday).
func GetProviderSchedulesByDay(c *fiber.Ctx) error {
	providerID := c.Params("providerId")
	day, err := c.ParamsInt("day")
	if err != nil || day < 0 || day > 6 {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "day must be 0 (Sunday) through 6 (Saturday)",
		})
	}

	var provider models.User
	if err := db.DB.First(&provider, providerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
			Message: "Provider not found",
			Error:   err.Error(),
		})
	}

	var schedules []models.Schedule
	if err := db.DB.
		Where("provider_id = ? AND day_of_week = ? AND available = ?", providerID, day, true).
		Order("start_time asc").
		Find(&schedules).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
			Message: "Failed to fetch schedules",
			Error:   err.Error(),
		})
	}
	return c.JSON(schedules)
}
