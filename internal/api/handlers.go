package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorental/internal/models"
	"gorental/internal/reports"
	"gorental/internal/service"
)

type createBookingRequest struct {
	CarID           int64           `json:"car_id"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	Customer        models.Customer `json:"customer"`
	DiscountPercent float64         `json:"discount_percent"`
	AdditionalNotes string          `json:"additional_notes"`
}

type updateBookingRequest struct {
	AdditionalNotes *string             `json:"additional_notes"`
	PaymentInfo     *models.PaymentInfo `json:"payment_info"`
}

type paymentMethodRequest struct {
	Method string `json:"method"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := requestIdentity(r)
	if identity.UserID == 0 {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}

	booking, err := s.bookings.Create(r.Context(), service.BookingInput{
		CarID:           req.CarID,
		StartDate:       start,
		EndDate:         end,
		Customer:        req.Customer,
		DiscountPercent: req.DiscountPercent,
		AdditionalNotes: req.AdditionalNotes,
	}, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := requestIdentity(r)
	if identity.UserID == 0 {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	page := pageParam(r)
	perPage := s.pages.BookingsPerPage
	bookings, summary, total, err := s.bookings.MyBookings(r.Context(), identity, page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings":   bookings,
		"summary":    summary,
		"pagination": models.Pagination{Page: page, PerPage: perPage, TotalCount: total},
	})
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	idPart, sub, _ := strings.Cut(rest, "/")

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	identity := requestIdentity(r)
	if identity.UserID == 0 {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if sub == "payment-method" {
		s.handlePaymentMethod(w, r, id, identity)
		return
	}
	if sub != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.Get(r.Context(), id, identity)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"booking": booking})

	case http.MethodPatch:
		var req updateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.PaymentInfo != nil && !identity.IsAdmin() {
			writeError(w, http.StatusForbidden, "only operators can edit payment state")
			return
		}
		booking, err := s.bookings.Update(r.Context(), id, service.BookingUpdate{
			AdditionalNotes: req.AdditionalNotes,
			PaymentInfo:     req.PaymentInfo,
		}, identity)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"booking": booking})

	case http.MethodDelete:
		if err := s.bookings.Delete(r.Context(), id, identity); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePaymentMethod(w http.ResponseWriter, r *http.Request, id int64, identity models.Identity) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.bookings.SelectPaymentMethod(r.Context(), id, req.Method, identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{"method": result.Method}
	if result.CheckoutURL != "" {
		resp["checkout_url"] = result.CheckoutURL
	}
	if result.HoldFor > 0 {
		resp["hold_hours"] = int(result.HoldFor.Hours())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleCars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter, err := carFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cars, total, err := s.cars.Search(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = s.pages.CarsPerPage
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cars":       cars,
		"pagination": models.Pagination{Page: filter.Page, PerPage: perPage, TotalCount: total},
	})
}

func (s *HTTPServer) handleCarByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/cars/")
	idPart, sub, _ := strings.Cut(rest, "/")

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}

	switch sub {
	case "":
		car, err := s.cars.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"car": car})

	case "booked-dates":
		dates, err := s.bookings.BookedDates(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]string, 0, len(dates))
		for _, d := range dates {
			out = append(out, d.Format(models.DateOnly))
		}
		writeJSON(w, http.StatusOK, map[string]any{"booked_dates": out})

	case "availability":
		start, err := parseDate(r.URL.Query().Get("start_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
			return
		}
		end, err := parseDate(r.URL.Query().Get("end_date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
			return
		}
		conflicts, err := s.bookings.Availability(r.Context(), id, start, end)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"available": len(conflicts) == 0,
			"conflicts": len(conflicts),
		})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := requestIdentity(r)
	page := pageParam(r)
	perPage := s.pages.AdminBookingsPerPage

	bookings, total, err := s.bookings.AllBookings(r.Context(), identity, page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings":   bookings,
		"pagination": models.Pagination{Page: page, PerPage: perPage, TotalCount: total},
	})
}

func (s *HTTPServer) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report, ok := s.salesReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleSalesExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report, ok := s.salesReport(w, r)
	if !ok {
		return
	}

	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", reports.SalesReportFileName(startDate, endDate)))

	if err := reports.WriteSalesReport(w, report); err != nil {
		s.log.Error().Err(err).Msg("sales export failed")
	}
}

func (s *HTTPServer) salesReport(w http.ResponseWriter, r *http.Request) (*models.SalesReport, bool) {
	identity := requestIdentity(r)
	if !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin access required")
		return nil, false
	}

	start, err := parseDate(r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return nil, false
	}
	end, err := parseDate(r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return nil, false
	}

	report, err := s.sales.Report(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return report, true
}

func carFilterFromQuery(r *http.Request) (models.CarFilter, error) {
	q := r.URL.Query()

	filter := models.CarFilter{
		Category:     strings.TrimSpace(q.Get("category")),
		Brand:        strings.TrimSpace(q.Get("brand")),
		Transmission: strings.TrimSpace(q.Get("transmission")),
		Query:        strings.TrimSpace(q.Get("query")),
		Page:         pageParam(r),
	}

	if raw := q.Get("max_rent_per_day"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return filter, fmt.Errorf("invalid max_rent_per_day")
		}
		filter.MaxRentPerDay = v
	}

	startRaw, endRaw := q.Get("start_date"), q.Get("end_date")
	if startRaw != "" || endRaw != "" {
		start, err := parseDate(startRaw)
		if err != nil {
			return filter, fmt.Errorf("invalid start_date; expected YYYY-MM-DD")
		}
		end, err := parseDate(endRaw)
		if err != nil {
			return filter, fmt.Errorf("invalid end_date; expected YYYY-MM-DD")
		}
		filter.Window = &models.DateWindow{Start: start, End: end}
	}

	loc := models.LocationFilter{
		City:        strings.TrimSpace(q.Get("city")),
		Country:     strings.TrimSpace(q.Get("country")),
		CountryCode: strings.TrimSpace(q.Get("country_code")),
	}
	if raw := q.Get("radius_km"); raw != "" {
		lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
		radius, errRad := strconv.ParseFloat(raw, 64)
		if errLat != nil || errLng != nil || errRad != nil || radius <= 0 {
			return filter, fmt.Errorf("radius search requires latitude, longitude and a positive radius_km")
		}
		loc.Latitude, loc.Longitude, loc.RadiusKM = lat, lng, radius
	}
	if loc != (models.LocationFilter{}) {
		filter.Location = &loc
	}

	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateOnly, strings.TrimSpace(raw))
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
