package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorental/internal/config"
	"gorental/internal/database"
	"gorental/internal/events"
	"gorental/internal/models"
	"gorental/internal/repository"
	"gorental/internal/service"
)

type stubGateway struct {
	url string
	err error
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ *models.Booking, _ *models.Car) (string, error) {
	return g.url, g.err
}

type stubLedger struct {
	enqueued []int64
}

func (l *stubLedger) EnqueueReservation(_ context.Context, b *models.Booking) error {
	l.enqueued = append(l.enqueued, b.ID)
	return nil
}

type stubVerifier struct {
	notification *models.PaymentNotification
	err          error
}

func (v *stubVerifier) ParseNotification(_ []byte, signatureHeader string) (*models.PaymentNotification, error) {
	if signatureHeader == "" {
		return nil, errors.New("missing signature header")
	}
	return v.notification, v.err
}

type apiFixture struct {
	db       *database.DB
	verifier *stubVerifier
	ledger   *stubLedger
	handler  http.Handler
}

func newAPIFixture(t *testing.T, cfg config.ServerConfig) *apiFixture {
	t.Helper()
	logger := zerolog.New(os.Stdout)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gateway := &stubGateway{url: "https://pay.example.com/session/cs_123"}
	ledger := &stubLedger{}
	verifier := &stubVerifier{}
	idem := repository.NewMemoryIdempotencyStore(time.Hour)
	pages := config.BookingConfig{CarsPerPage: 3, BookingsPerPage: 3, AdminBookingsPerPage: 2}

	bookings := service.NewBookingService(db, events.NewEventBus(), gateway, idem, ledger, 365, 6, &logger)
	cars := service.NewCarService(db, pages.CarsPerPage, &logger)
	sales := service.NewSalesService(db, &logger)

	srv := NewHTTPServer(cfg, pages, bookings, cars, sales, verifier, &logger)
	return &apiFixture{db: db, verifier: verifier, ledger: ledger, handler: srv.Handler()}
}

func (f *apiFixture) seedCar(t *testing.T, id int64, name string, rentPerDay float64) {
	t.Helper()
	err := f.db.UpsertCar(context.Background(), &models.Car{
		ID:         id,
		Name:       name,
		Status:     models.CarStatusActive,
		RentPerDay: rentPerDay,
		Brand:      "Toyota",
		Category:   "Sedan",
		City:       "Sydney",
	})
	require.NoError(t, err)
}

func (f *apiFixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func asUser(id int64) map[string]string {
	return map[string]string{headerUserID: strconv.FormatInt(id, 10)}
}

func asAdmin(id int64) map[string]string {
	return map[string]string{headerUserID: strconv.FormatInt(id, 10), headerUserRole: models.RoleAdmin}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func futureRange(startOffset, length int) (string, string) {
	start := time.Now().AddDate(0, 0, startOffset)
	end := start.AddDate(0, 0, length-1)
	return start.Format(models.DateOnly), end.Format(models.DateOnly)
}

func (f *apiFixture) createBooking(t *testing.T, userID, carID int64, startOffset, length int) int64 {
	t.Helper()
	start, end := futureRange(startOffset, length)
	rec := f.do(http.MethodPost, "/api/v1/bookings", map[string]any{
		"car_id":     carID,
		"start_date": start,
		"end_date":   end,
		"customer":   map[string]string{"name": "Jane Doe", "email": "jane@example.com", "phone": "+61400000000"},
	}, asUser(userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	booking := body["booking"].(map[string]any)
	return int64(booking["id"].(float64))
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.ServerConfig{
		Auth: config.AuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{{Key: "secret-key", Name: "frontend"}},
		},
	}
	f := newAPIFixture(t, cfg)

	rec := f.do(http.MethodGet, "/api/v1/cars", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/cars", nil, map[string]string{"x-api-key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/cars", nil, map[string]string{"x-api-key": "secret-key"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health and the webhook sit outside the API-key boundary.
	rec = f.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/webhooks/payment", nil, nil)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := config.ServerConfig{
		RateLimit: config.RateLimitConfig{RPS: 0.001, Burst: 2},
	}
	f := newAPIFixture(t, cfg)

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodGet, "/api/v1/cars", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(http.MethodGet, "/api/v1/cars", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCreateBooking(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)

	start, end := futureRange(10, 3)
	payload := map[string]any{
		"car_id":           1,
		"start_date":       start,
		"end_date":         end,
		"discount_percent": 10,
		"customer":         map[string]string{"name": "Jane Doe", "email": "jane@example.com", "phone": "+61400000000"},
	}

	rec := f.do(http.MethodPost, "/api/v1/bookings", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "anonymous requests cannot book")

	rec = f.do(http.MethodPost, "/api/v1/bookings", payload, asUser(7))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	booking := decodeBody(t, rec)["booking"].(map[string]any)
	amount := booking["amount"].(map[string]any)
	assert.Equal(t, 300.0, amount["rent"])
	assert.Equal(t, 30.0, amount["discount"])
	assert.Equal(t, 45.0, amount["tax"])
	assert.Equal(t, 315.0, amount["total"])
	assert.Equal(t, models.PaymentStatusPending, booking["payment_info"].(map[string]any)["status"])

	// Same car, overlapping window.
	rec = f.do(http.MethodPost, "/api/v1/bookings", payload, asUser(8))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)

	rec := f.do(http.MethodPost, "/api/v1/bookings", map[string]any{
		"car_id":     1,
		"start_date": "not-a-date",
		"end_date":   "2026-09-05",
		"customer":   map[string]string{"name": "J", "email": "j@e.c", "phone": "1"},
	}, asUser(7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	start, end := futureRange(10, 3)
	rec = f.do(http.MethodPost, "/api/v1/bookings", map[string]any{
		"car_id":     1,
		"start_date": end,
		"end_date":   start,
		"customer":   map[string]string{"name": "J", "email": "j@e.c", "phone": "1"},
	}, asUser(7))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "inverted range")

	rec = f.do(http.MethodPost, "/api/v1/bookings", map[string]any{
		"car_id":     1,
		"start_date": start,
		"end_date":   end,
	}, asUser(7))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing customer")

	rec = f.do(http.MethodPost, "/api/v1/bookings", map[string]any{
		"car_id":     99,
		"start_date": start,
		"end_date":   end,
		"customer":   map[string]string{"name": "J", "email": "j@e.c", "phone": "1"},
	}, asUser(7))
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown car")
}

func TestBookingAccess(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)
	id := f.createBooking(t, 7, 1, 10, 3)
	path := fmt.Sprintf("/api/v1/bookings/%d", id)

	rec := f.do(http.MethodGet, path, nil, asUser(7))
	assert.Equal(t, http.StatusOK, rec.Code, "owner can read")

	rec = f.do(http.MethodGet, path, nil, asUser(8))
	assert.Equal(t, http.StatusForbidden, rec.Code, "strangers cannot")

	rec = f.do(http.MethodGet, path, nil, asAdmin(99))
	assert.Equal(t, http.StatusOK, rec.Code, "operators can")

	rec = f.do(http.MethodPatch, path, map[string]any{
		"payment_info": map[string]string{"status": models.PaymentStatusPaid},
	}, asUser(7))
	assert.Equal(t, http.StatusForbidden, rec.Code, "payment state is operator-only")

	rec = f.do(http.MethodDelete, path, nil, asUser(7))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodDelete, path, nil, asAdmin(99))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, path, nil, asAdmin(99))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentMethodSelection(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)
	f.seedCar(t, 2, "Tesla Model 3", 110)

	cashID := f.createBooking(t, 7, 1, 10, 3)
	rec := f.do(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/payment-method", cashID),
		map[string]string{"method": "cash"}, asUser(7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "cash", body["method"])
	assert.Equal(t, 6.0, body["hold_hours"])

	rec = f.do(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/payment-method", cashID),
		map[string]string{"method": "card"}, asUser(7))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "method cannot change once chosen")

	cardID := f.createBooking(t, 7, 2, 10, 3)
	rec = f.do(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/payment-method", cardID),
		map[string]string{"method": "card"}, asUser(7))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "card", body["method"])
	assert.Equal(t, "https://pay.example.com/session/cs_123", body["checkout_url"])
}

func TestPaymentWebhook(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)
	id := f.createBooking(t, 7, 1, 10, 3)

	sig := map[string]string{"Stripe-Signature": "t=1,v1=abc"}

	rec := f.do(http.MethodPost, "/webhooks/payment", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing signature is rejected")

	f.verifier.err = errors.New("signature mismatch")
	rec = f.do(http.MethodPost, "/webhooks/payment", map[string]string{}, sig)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.verifier.err = nil

	// Event type the verifier does not care about.
	rec = f.do(http.MethodPost, "/webhooks/payment", map[string]string{}, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decodeBody(t, rec)["status"])

	f.verifier.notification = &models.PaymentNotification{
		EventID:   "evt_1",
		BookingID: id,
		PaymentID: "pi_1",
		Status:    models.PaymentStatusPaid,
		Method:    models.PaymentMethodCard,
	}
	rec = f.do(http.MethodPost, "/webhooks/payment", map[string]string{}, sig)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	booking, err := f.db.GetReservation(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, booking.PaymentInfo.Status)
	assert.Equal(t, []int64{id}, f.ledger.enqueued)

	// Redelivery of the same event changes nothing.
	rec = f.do(http.MethodPost, "/webhooks/payment", map[string]string{}, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.ledger.enqueued, 1)
}

func TestCarEndpoints(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)
	f.seedCar(t, 2, "Tesla Model 3", 110)
	f.createBooking(t, 7, 1, 10, 3)

	rec := f.do(http.MethodGet, "/api/v1/cars", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["cars"], 2)

	// A window covering the existing reservation hides the booked car.
	start, end := futureRange(11, 1)
	rec = f.do(http.MethodGet, "/api/v1/cars?start_date="+start+"&end_date="+end, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.Len(t, body["cars"], 1)
	car := body["cars"].([]any)[0].(map[string]any)
	assert.Equal(t, "Tesla Model 3", car["name"])

	rec = f.do(http.MethodGet, "/api/v1/cars/1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/cars/1/booked-dates", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Len(t, body["booked_dates"], 3)

	rec = f.do(http.MethodGet, "/api/v1/cars/1/availability?start_date="+start+"&end_date="+end, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["available"])
	assert.Equal(t, 1.0, body["conflicts"])

	rec = f.do(http.MethodGet, "/api/v1/cars/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	f.seedCar(t, 1, "Toyota Corolla", 100)
	f.seedCar(t, 2, "Tesla Model 3", 110)
	f.seedCar(t, 3, "Mazda MX-5", 95)
	f.createBooking(t, 7, 1, 10, 3)
	f.createBooking(t, 8, 2, 10, 3)
	f.createBooking(t, 9, 3, 10, 3)

	rec := f.do(http.MethodGet, "/api/v1/admin/bookings", nil, asUser(7))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/admin/bookings", nil, asAdmin(99))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["bookings"], 2, "admin page size")
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, 3.0, pagination["total_count"])

	today := time.Now().UTC().Format(models.DateOnly)
	salesPath := "/api/v1/admin/sales?start_date=" + today + "&end_date=" + today

	rec = f.do(http.MethodGet, salesPath, nil, asUser(7))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, salesPath, nil, asAdmin(99))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, 3.0, body["total_bookings"])
	assert.Len(t, body["sales"], 1)

	rec = f.do(http.MethodGet, "/api/v1/admin/sales/export?start_date="+today+"&end_date="+today, nil, asAdmin(99))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales_"+today+"_to_"+today+".xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestMyBookingsPagination(t *testing.T) {
	f := newAPIFixture(t, config.ServerConfig{})
	for i := int64(1); i <= 4; i++ {
		f.seedCar(t, i, fmt.Sprintf("Car %d", i), 100)
		f.createBooking(t, 7, i, 10, 2)
	}

	rec := f.do(http.MethodGet, "/api/v1/bookings/me", nil, asUser(7))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["bookings"], 3)

	summary := body["summary"].(map[string]any)
	assert.Equal(t, 4.0, summary["total_bookings"])

	rec = f.do(http.MethodGet, "/api/v1/bookings/me?page=2", nil, asUser(7))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Len(t, body["bookings"], 1)
}
