// Package server exposes the dashboard over a JSON HTTP API for the admin
// UI: view-model reads, navigation via query params, and the three
// confirmation-gated actions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pawboard/internal/calendar"
	"pawboard/internal/dashboard"
	"pawboard/internal/export"
	"pawboard/internal/metrics"
)

// Dashboard is the slice of the controller the HTTP surface needs.
type Dashboard interface {
	ViewModel() dashboard.ViewModel
	ShowDate(ctx context.Context, date time.Time) error
	ShowWeek(ctx context.Context, start time.Time) error
	Refresh(ctx context.Context) error
	RefreshInvoices(ctx context.Context) error
	CancelBooking(ctx context.Context, id int64) error
	MarkBookingPaid(ctx context.Context, id int64) error
	MarkInvoicePaid(ctx context.Context, email string) error
}

// HTTPServer serves the admin dashboard API.
type HTTPServer struct {
	dash Dashboard
	log  *zerolog.Logger
	now  func() time.Time
}

// NewHTTPServer creates the API server around a dashboard controller.
func NewHTTPServer(dash Dashboard, log *zerolog.Logger) *HTTPServer {
	return &HTTPServer{dash: dash, log: log, now: time.Now}
}

// Handler returns the route mux.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/invoices", s.handleInvoices)
	mux.HandleFunc("/api/invoices/mark-paid", s.handleMarkInvoicePaid)
	mux.HandleFunc("/api/invoices/export", s.handleExportInvoices)
	mux.HandleFunc("/api/bookings/cancel", s.handleCancelBooking)
	mux.HandleFunc("/api/bookings/mark-paid", s.handleMarkBookingPaid)
	return mux
}

// handleDashboard returns the full view model, optionally navigating to a
// focus date first.
// GET /api/dashboard?date=YYYY-MM-DD
func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var err error
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, parseErr := time.Parse("2006-01-02", dateStr)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		err = s.dash.ShowDate(r.Context(), date)
	} else {
		err = s.dash.Refresh(r.Context())
	}
	if errors.Is(err, dashboard.ErrStaleWindow) {
		// A newer navigation superseded this one; the stored view model is
		// already the newer window's, so serve it.
		s.log.Debug().Msg("dashboard refresh superseded by newer navigation")
	} else if err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, s.dash.ViewModel())
}

// handleInvoices returns the weekly invoice pane, optionally moving the
// invoice week first. The bookings pane is untouched.
// GET /api/invoices?start=YYYY-MM-DD
func (s *HTTPServer) handleInvoices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("invoices")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, ok := s.invoiceWeekParam(w, r)
	if !ok {
		return
	}
	err := s.dash.ShowWeek(r.Context(), start)
	if errors.Is(err, dashboard.ErrStaleWindow) {
		s.log.Debug().Msg("invoice refresh superseded by newer navigation")
	} else if err != nil {
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, s.dash.ViewModel().Invoices)
}

// handleExportInvoices streams the current invoice week as an Excel
// workbook.
// GET /api/invoices/export?start=YYYY-MM-DD
func (s *HTTPServer) handleExportInvoices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("invoices_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, ok := s.invoiceWeekParam(w, r)
	if !ok {
		return
	}
	if err := s.dash.ShowWeek(r.Context(), start); err != nil && !errors.Is(err, dashboard.ErrStaleWindow) {
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	pane := s.dash.ViewModel().Invoices
	weekStart, err := time.Parse("2006-01-02", pane.WeekStart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "no invoice week loaded")
		return
	}

	writer := export.NewExcelizeWriter()
	defer writer.Close()
	if err := export.WriteInvoiceWorkbook(writer, weekStart, pane.Rows, pane.Summary); err != nil {
		s.log.Error().Err(err).Msg("build invoice workbook")
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices-`+pane.WeekStart+`.xlsx"`)
	if err := writer.Save(w); err != nil {
		s.log.Error().Err(err).Msg("stream invoice workbook")
	}
}

// CancelBookingRequest is the body for POST /api/bookings/cancel.
type CancelBookingRequest struct {
	ID        int64 `json:"id"`
	Confirmed bool  `json:"confirmed"`
}

// MarkBookingPaidRequest is the body for POST /api/bookings/mark-paid.
type MarkBookingPaidRequest struct {
	ID        int64 `json:"id"`
	Confirmed bool  `json:"confirmed"`
}

// MarkInvoicePaidRequest is the body for POST /api/invoices/mark-paid.
type MarkInvoicePaidRequest struct {
	Email     string `json:"email"`
	WeekStart string `json:"week_start,omitempty"` // Format: YYYY-MM-DD
	Confirmed bool   `json:"confirmed"`
}

// ActionResponse is the response for all action endpoints.
type ActionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleCancelBooking cancels a booking.
// POST /api/bookings/cancel
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CancelBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "invalid JSON body"})
		return
	}
	if req.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "id is required"})
		return
	}
	if !req.Confirmed {
		writeJSON(w, http.StatusPreconditionFailed, ActionResponse{Error: "confirmation required"})
		return
	}

	s.finishAction(w, "cancel booking", s.dash.CancelBooking(r.Context(), req.ID))
}

// handleMarkBookingPaid marks a single-day booking paid.
// POST /api/bookings/mark-paid
func (s *HTTPServer) handleMarkBookingPaid(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("mark_booking_paid")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req MarkBookingPaidRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "invalid JSON body"})
		return
	}
	if req.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "id is required"})
		return
	}
	if !req.Confirmed {
		writeJSON(w, http.StatusPreconditionFailed, ActionResponse{Error: "confirmation required"})
		return
	}

	s.finishAction(w, "mark booking paid", s.dash.MarkBookingPaid(r.Context(), req.ID))
}

// handleMarkInvoicePaid marks a customer's weekly invoice paid.
// POST /api/invoices/mark-paid
func (s *HTTPServer) handleMarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("mark_invoice_paid")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req MarkInvoicePaidRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "invalid JSON body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "email is required"})
		return
	}
	if !req.Confirmed {
		writeJSON(w, http.StatusPreconditionFailed, ActionResponse{Error: "confirmation required"})
		return
	}

	// An explicit week moves the invoice cursor before dispatching, so the
	// payment lands on the week the operator was looking at.
	if req.WeekStart != "" {
		start, err := time.Parse("2006-01-02", req.WeekStart)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "invalid week_start format; expected YYYY-MM-DD"})
			return
		}
		if err := s.dash.ShowWeek(r.Context(), start); err != nil && !errors.Is(err, dashboard.ErrStaleWindow) {
			writeError(w, http.StatusBadGateway, "refresh failed")
			return
		}
	}

	s.finishAction(w, "mark invoice paid", s.dash.MarkInvoicePaid(r.Context(), req.Email))
}

func (s *HTTPServer) finishAction(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, dashboard.ErrDeclined):
		writeJSON(w, http.StatusPreconditionFailed, ActionResponse{Error: "confirmation required"})
	case errors.Is(err, dashboard.ErrStaleWindow):
		// The action itself was dispatched; only the follow-up refresh was
		// superseded.
		writeJSON(w, http.StatusOK, ActionResponse{Success: true})
	case err != nil:
		s.log.Error().Err(err).Msg("failed to " + what)
		writeJSON(w, http.StatusBadGateway, ActionResponse{Error: "failed to " + what})
	default:
		writeJSON(w, http.StatusOK, ActionResponse{Success: true})
	}
}

// invoiceWeekParam resolves the start query param, defaulting to the last
// completed week.
func (s *HTTPServer) invoiceWeekParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	startStr := r.URL.Query().Get("start")
	if startStr == "" {
		return calendar.LastCompletedWeekStart(s.now()), true
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start format; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return start, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
