package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomsheet/internal/google"
	"roomsheet/internal/models"
	"roomsheet/internal/service"
	"roomsheet/internal/sheet"

	"github.com/rs/zerolog"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.bookings.Rooms(r.Context())})
}

func (s *HTTPServer) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeslots": s.bookings.TimeSlots(r.Context())})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		year, month, err := monthQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		list, err := s.bookings.Bookings(r.Context(), year, month)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if list == nil {
			list = []models.Booking{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": list})

	case http.MethodPost:
		var req models.BookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		created, err := s.bookings.CreateBooking(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"booking": created})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/api/v1/bookings/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	// The id alone does not identify a month tab, so the booking's current
	// date rides along as a query parameter.
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req models.BookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		updated, err := s.bookings.UpdateBooking(r.Context(), id, date, req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"booking": updated})

	case http.MethodDelete:
		if err := s.bookings.DeleteBooking(r.Context(), id, date); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.schedules.FixedSchedules(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if list == nil {
			list = []models.FixedSchedule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"fixed_schedules": list})

	case http.MethodPost:
		var req models.FixedScheduleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		created, err := s.schedules.CreateFixedSchedule(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"fixed_schedule": created})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleScheduleByID(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/api/v1/fixed-schedules/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "schedule id is required")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req models.FixedScheduleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		updated, err := s.schedules.UpdateFixedSchedule(r.Context(), id, req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fixed_schedule": updated})

	case http.MethodDelete:
		if err := s.schedules.DeleteFixedSchedule(r.Context(), id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleSheetURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.bookings.SheetURL(r.Context())})
}

func (s *HTTPServer) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	ops := []*models.Operation{}
	if s.journal != nil {
		var err error
		ops, err = s.journal.RecentOperations(r.Context(), limit)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("journal read failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ops == nil {
			ops = []*models.Operation{}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}

func (s *HTTPServer) handleExports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	// Empty body means the current month.
	var req struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if (req.Year == 0) != (req.Month == 0) {
		writeError(w, http.StatusBadRequest, "year and month go together")
		return
	}
	if req.Month < 0 || req.Month > 12 || req.Year < 0 {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}

	file, err := s.exporter.MonthSnapshot(r.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": file})
}

// writeServiceError translates service failures to HTTP statuses. Conflict
// and missing-tab responses keep their structured detail so clients can
// show who holds the slot or which tab name to create.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrPastDate):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrConflict):
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":    err.Error(),
				"conflict": conflict,
			})
			return
		}
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, sheet.ErrSheetNotFound):
		var missing *sheet.NotFoundError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":     err.Error(),
				"suggested": missing.Suggested,
			})
			return
		}
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, google.ErrTransient), errors.Is(err, google.ErrAuth):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("spreadsheet unavailable")
		writeError(w, http.StatusBadGateway, "spreadsheet unavailable")

	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func pathID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return strings.TrimSpace(id)
}

func monthQuery(r *http.Request) (int, time.Month, error) {
	yearStr := strings.TrimSpace(r.URL.Query().Get("year"))
	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))

	if yearStr == "" && monthStr == "" {
		return 0, 0, nil
	}
	if yearStr == "" || monthStr == "" {
		return 0, 0, errors.New("year and month go together")
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year <= 0 {
		return 0, 0, errors.New("invalid year")
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("invalid month")
	}
	return year, time.Month(month), nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
