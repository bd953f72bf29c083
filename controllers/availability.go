package controllers

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
	"github.com/serbisyo/serbisyo-api/utils"
)

// SlotGranularity is the spacing between generated slot starts. One hour
// unless overridden, so different services can share the same windows.
func SlotGranularity() time.Duration {
	if v := os.Getenv("SLOT_GRANULARITY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return time.Hour
}

// GetAvailability godoc
// @Summary Get open slots for a provider over a date range
// @Tags availability
// @Produce json
// @Param providerId query int true "Provider ID"
// @Param from query string true "Start date YYYY-MM-DD"
// @Param to query string true "End date YYYY-MM-DD"
// @Param serviceId query int false "Service whose duration sizes the slots"
// @Success 200 {array} utils.DayAvailability
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /availability [get]
func GetAvailability(c *fiber.Ctx) error {
	providerID := c.QueryInt("providerId")
	from := c.Query("from")
	to := c.Query("to")
	if providerID <= 0 || from == "" || to == "" {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "providerId, from and to are required",
		})
	}

	slotDur := time.Hour
	if serviceID := c.QueryInt("serviceId"); serviceID > 0 {
		var service models.Service
		if err := db.DB.First(&service, serviceID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
				Message: "Service not found",
				Error:   err.Error(),
			})
		}
		if service.Duration > 0 {
			slotDur = service.Duration
		}
	}

	days, err := utils.ResolveAvailability(uint(providerID), from, to, slotDur, SlotGranularity())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRange):
			return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
				Message: "Invalid date range",
				Error:   err.Error(),
			})
		case errors.Is(err, models.ErrProviderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(utils.ErrorResponse{
				Message: "Provider not found",
				Error:   err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
				Message: "Failed to resolve availability",
				Error:   err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"provider_id":  providerID,
		"availability": days,
	})
}
