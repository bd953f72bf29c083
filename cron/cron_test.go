package cron_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/serbisyo/serbisyo-api/cron"
	"github.com/serbisyo/serbisyo-api/db"
	"github.com/serbisyo/serbisyo-api/models"
	"github.com/serbisyo/serbisyo-api/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	g, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := g.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, g.AutoMigrate(&models.User{}, &models.Service{}, &models.Schedule{}, &models.Booking{}))
	require.NoError(t, db.EnsureSlotIndex(g))
	db.DB = g
	return g
}

func seedBooking(t *testing.T, g *gorm.DB, slot string, method models.PaymentMethod, age time.Duration) models.Booking {
	t.Helper()
	booking := models.Booking{
		ProviderID:  1,
		CustomerID:  2,
		ServiceID:   1,
		BookingDate: time.Now().In(utils.LocalZone()).AddDate(0, 0, 7).Format(utils.DateLayout),
		BookingTime: slot,
		Payment:     models.Payment{Amount: 500, Method: method},
	}
	require.NoError(t, g.Create(&booking).Error)
	if age > 0 {
		// backdate past BeforeCreate's timestamp
		require.NoError(t, g.Model(&booking).Update("created_at", time.Now().Add(-age)).Error)
	}
	return booking
}

func TestCancelExpiredCheckouts_SweepsStaleGCash(t *testing.T) {
	g := setupTestDB(t)
	stale := seedBooking(t, g, "09:00", models.PaymentGCash, time.Hour)

	n, err := cron.CancelExpiredCheckouts(g, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var saved models.Booking
	require.NoError(t, g.First(&saved, stale.ID).Error)
	assert.Equal(t, models.StatusCancelled, saved.Status)
}

func TestCancelExpiredCheckouts_ReleasesSlot(t *testing.T) {
	g := setupTestDB(t)
	stale := seedBooking(t, g, "10:00", models.PaymentGCash, time.Hour)

	_, err := cron.CancelExpiredCheckouts(g, 30*time.Minute)
	require.NoError(t, err)

	// same (provider, date, time) is insertable again after the sweep
	retry := models.Booking{
		ProviderID:  stale.ProviderID,
		CustomerID:  stale.CustomerID,
		ServiceID:   stale.ServiceID,
		BookingDate: stale.BookingDate,
		BookingTime: stale.BookingTime,
		Payment:     models.Payment{Amount: 500, Method: models.PaymentCash},
	}
	assert.NoError(t, g.Create(&retry).Error)
}

func TestCancelExpiredCheckouts_FreshCheckoutUntouched(t *testing.T) {
	g := setupTestDB(t)
	fresh := seedBooking(t, g, "09:00", models.PaymentGCash, 5*time.Minute)

	n, err := cron.CancelExpiredCheckouts(g, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var saved models.Booking
	require.NoError(t, g.First(&saved, fresh.ID).Error)
	assert.Equal(t, models.StatusPending, saved.Status)
}

func TestCancelExpiredCheckouts_CashNeverSwept(t *testing.T) {
	g := setupTestDB(t)
	cash := seedBooking(t, g, "09:00", models.PaymentCash, 2*time.Hour)

	n, err := cron.CancelExpiredCheckouts(g, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var saved models.Booking
	require.NoError(t, g.First(&saved, cash.ID).Error)
	assert.Equal(t, models.StatusPending, saved.Status)
}

func TestCancelExpiredCheckouts_SettledPaymentNotSwept(t *testing.T) {
	g := setupTestDB(t)
	paid := seedBooking(t, g, "09:00", models.PaymentGCash, 2*time.Hour)
	require.NoError(t, g.Model(&paid).Update("payment_status", models.PaymentCompleted).Error)

	n, err := cron.CancelExpiredCheckouts(g, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var saved models.Booking
	require.NoError(t, g.First(&saved, paid.ID).Error)
	assert.Equal(t, models.StatusPending, saved.Status)
}
