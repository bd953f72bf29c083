package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/serbisyo/serbisyo-api/controllers"
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

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	g := setupTestDB(t)
	app := fiber.New()
	app.Get("/availability", controllers.GetAvailability)
	app.Post("/bookings", controllers.CreateBooking)
	app.Patch("/bookings/:id/status", controllers.UpdateBookingStatus)
	app.Post("/payments/checkout", controllers.CreateCheckout)
	app.Post("/payments/webhook", controllers.PaymentWebhook)
	return app, g
}

type fixture struct {
	provider models.User
	customer models.User
	service  models.Service
	monday   string
}

func seedFixture(t *testing.T, g *gorm.DB) fixture {
	t.Helper()
	provider := models.User{Name: "Ana Reyes", Email: "ana@serbisyo.ph", Role: "provider"}
	require.NoError(t, g.Create(&provider).Error)
	customer := models.User{Name: "Jose Cruz", Email: "jose@serbisyo.ph", Role: "customer"}
	require.NoError(t, g.Create(&customer).Error)

	service := models.Service{
		Name:       "Aircon Cleaning",
		Duration:   time.Hour,
		Price:      500,
		ProviderID: provider.ID,
	}
	require.NoError(t, g.Create(&service).Error)

	require.NoError(t, g.Create(&models.Schedule{
		ProviderID: provider.ID,
		DayOfWeek:  models.Monday,
		StartTime:  "08:00",
		EndTime:    "12:00",
		Available:  true,
	}).Error)

	return fixture{provider: provider, customer: customer, service: service, monday: nextMonday()}
}

func nextMonday() string {
	d := time.Now().In(utils.LocalZone()).AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(utils.DateLayout)
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func patchJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBooking(t *testing.T, resp *http.Response) models.Booking {
	t.Helper()
	var booking models.Booking
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&booking))
	return booking
}

func decodeJSON(resp *http.Response, out interface{}) error {
	return json.NewDecoder(resp.Body).Decode(out)
}

func createRequest(f fixture, slot string, method models.PaymentMethod) controllers.CreateBookingRequest {
	return controllers.CreateBookingRequest{
		ProviderID:    f.provider.ID,
		CustomerID:    f.customer.ID,
		ServiceID:     f.service.ID,
		BookingDate:   f.monday,
		BookingTime:   slot,
		PaymentMethod: method,
	}
}

func TestCreateBooking_CashSucceeds(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "10:00", models.PaymentCash))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	booking := decodeBooking(t, resp)
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Equal(t, models.PaymentPending, booking.Payment.Status)
	assert.Equal(t, f.service.Price, booking.Payment.Amount, "amount is fixed from the service price")
}

func TestCreateBooking_TakenSlotRejected(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "09:00", models.PaymentCash))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/bookings", createRequest(f, "09:00", models.PaymentCash))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateBooking_RaceHasSingleWinner(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _ := json.Marshal(createRequest(f, "11:00", models.PaymentCash))
			req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				codes <- http.StatusInternalServerError
				return
			}
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	got := []int{}
	for code := range codes {
		got = append(got, code)
	}
	assert.ElementsMatch(t, []int{fiber.StatusCreated, fiber.StatusConflict}, got,
		"exactly one concurrent creator wins the slot")

	var count int64
	require.NoError(t, g.Model(&models.Booking{}).
		Where("provider_id = ? AND booking_date = ? AND booking_time = ? AND status <> ?",
			f.provider.ID, f.monday, "11:00", models.StatusCancelled).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateBooking_SlotOutsideScheduleRejected(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "13:00", models.PaymentCash))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateBooking_CancelledSlotReusable(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "08:00", models.PaymentCash))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	booking := decodeBooking(t, resp)

	resp = patchJSON(t, app, fmt.Sprintf("/bookings/%d/status", booking.ID),
		controllers.UpdateStatusRequest{Action: models.ActionCancel})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/bookings", createRequest(f, "08:00", models.PaymentCash))
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode, "cancelled booking releases its slot")
}

func TestCreateBooking_GCashRequiresIntentID(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "10:00", models.PaymentGCash))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateBooking_GCashWithIntentSucceeds(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	req := createRequest(f, "10:00", models.PaymentGCash)
	req.PaymentIntentID = "cs_live"
	resp := postJSON(t, app, "/bookings", req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	booking := decodeBooking(t, resp)
	assert.Equal(t, "cs_live", booking.Payment.IntentID)
	assert.Equal(t, models.PaymentPending, booking.Payment.Status, "settlement waits for the gateway callback")
}

func TestCreateBooking_UnknownPaymentMethodRejected(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "10:00", models.PaymentMethod("barter")))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateBookingStatus_FullLifecycle(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "09:00", models.PaymentCash))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	booking := decodeBooking(t, resp)
	path := fmt.Sprintf("/bookings/%d/status", booking.ID)

	// complete straight from pending is closed off
	resp = patchJSON(t, app, path, controllers.UpdateStatusRequest{Action: models.ActionComplete})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	for _, action := range []models.TransitionAction{models.ActionConfirm, models.ActionStart, models.ActionComplete} {
		resp = patchJSON(t, app, path, controllers.UpdateStatusRequest{Action: action})
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "action %s", action)
	}

	var saved models.Booking
	require.NoError(t, g.First(&saved, booking.ID).Error)
	assert.Equal(t, models.StatusCompleted, saved.Status)
	assert.Equal(t, models.PaymentCompleted, saved.Payment.Status)
}

func TestUpdateBookingStatus_GCashUnsettledCompleteRejected(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	booking := models.Booking{
		ProviderID:  f.provider.ID,
		CustomerID:  f.customer.ID,
		ServiceID:   f.service.ID,
		BookingDate: f.monday,
		BookingTime: "09:00",
		Status:      models.StatusInProgress,
		Payment:     models.Payment{Amount: 500, Method: models.PaymentGCash, IntentID: "cs_unsettled"},
	}
	require.NoError(t, g.Create(&booking).Error)

	resp := patchJSON(t, app, fmt.Sprintf("/bookings/%d/status", booking.ID),
		controllers.UpdateStatusRequest{Action: models.ActionComplete})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "not settled")
}

func TestUpdateBookingStatus_ConfirmKeepsSettledPayment(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)
	booking := seedGCashBooking(t, g, f, "cs_settled")

	// Gateway callback settles the payment before the provider confirms
	require.NoError(t, controllers.ReconcilePayment("cs_settled", true))

	resp := patchJSON(t, app, fmt.Sprintf("/bookings/%d/status", booking.ID),
		controllers.UpdateStatusRequest{Action: models.ActionConfirm})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var saved models.Booking
	require.NoError(t, g.First(&saved, booking.ID).Error)
	assert.Equal(t, models.StatusConfirmed, saved.Status)
	assert.Equal(t, models.PaymentCompleted, saved.Payment.Status, "confirm must not overwrite the settled payment")
}

func TestCreateBooking_ServiceProviderMismatchRejected(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	other := models.User{Name: "Liza Santos", Email: "liza@serbisyo.ph", Role: "provider"}
	require.NoError(t, g.Create(&other).Error)

	req := createRequest(f, "10:00", models.PaymentCash)
	req.ProviderID = other.ID
	resp := postJSON(t, app, "/bookings", req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "service price belongs to its own provider")
}

func TestUpdateBookingStatus_UnknownBooking(t *testing.T) {
	app, g := setupApp(t)
	seedFixture(t, g)

	resp := patchJSON(t, app, "/bookings/999/status",
		controllers.UpdateStatusRequest{Action: models.ActionConfirm})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetAvailability_WorkedExample(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	resp := postJSON(t, app, "/bookings", createRequest(f, "09:00", models.PaymentCash))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/availability?providerId=%d&from=%s&to=%s", f.provider.ID, f.monday, f.monday), nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var out struct {
		Availability []utils.DayAvailability `json:"availability"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.Len(t, out.Availability, 1)
	assert.Equal(t, []string{"08:00", "10:00", "11:00"}, out.Availability[0].Slots)
}

func TestGetAvailability_BadRequests(t *testing.T) {
	app, g := setupApp(t)
	f := seedFixture(t, g)

	req := httptest.NewRequest(http.MethodGet, "/availability?from=2030-06-03&to=2030-06-04", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	req = httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/availability?providerId=%d&from=2030-06-10&to=2030-06-03", f.provider.ID), nil)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/availability?providerId=4242&from=2030-06-03&to=2030-06-04", nil)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}
