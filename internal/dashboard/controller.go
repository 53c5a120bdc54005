// Package dashboard orchestrates the admin dashboard: it owns the two
// calendar cursors, asks the daycare server for the data each window needs,
// runs classification/aggregation/presentation, and publishes the resulting
// view model. All shared state lives behind one controller instance.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pawboard/internal/calendar"
	"pawboard/internal/capacity"
	"pawboard/internal/classify"
	"pawboard/internal/invoice"
	"pawboard/internal/metrics"
	"pawboard/internal/models"
)

const dateLayout = "2006-01-02"

// ErrStaleWindow is returned when a fetch completed for a window the user
// has already navigated away from. The response is discarded; only the
// latest requested window's result is meaningful.
var ErrStaleWindow = errors.New("window changed while fetch was in flight")

// ErrDeclined is returned when the confirmation gate stops an action.
var ErrDeclined = errors.New("action declined at confirmation gate")

// Fetcher reads data snapshots from the daycare server.
type Fetcher interface {
	Bookings(ctx context.Context, date time.Time) ([]models.Booking, error)
	WeeklyInvoices(ctx context.Context, weekStart time.Time) ([]models.InvoiceRow, error)
	Capacity(ctx context.Context, date time.Time) (models.CapacitySnapshot, error)
}

// Actions dispatches mutations to the daycare server. Each call returns the
// correlation ID it was dispatched with; outcomes are observed on the next
// refresh, never awaited.
type Actions interface {
	CancelBooking(ctx context.Context, id int64) (string, error)
	MarkBookingPaid(ctx context.Context, id int64) (string, error)
	MarkInvoicePaid(ctx context.Context, email string, weekStart time.Time) (string, error)
}

// Confirmer is the yes/no gate in front of destructive actions. A declined
// action must never be dispatched.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Renderer consumes each freshly published view model.
type Renderer interface {
	Render(vm ViewModel)
}

// SnapshotStore persists last-good rows per window. Optional; a nil store
// just disables warm-start and the fallback-after-failure path.
type SnapshotStore interface {
	SaveBookings(ctx context.Context, date time.Time, rows []models.Booking) error
	LoadBookings(ctx context.Context, date time.Time) ([]models.Booking, bool, error)
	SaveInvoices(ctx context.Context, weekStart time.Time, rows []models.InvoiceRow) error
	LoadInvoices(ctx context.Context, weekStart time.Time) ([]models.InvoiceRow, bool, error)
	SaveCapacity(ctx context.Context, date time.Time, snap models.CapacitySnapshot) error
	LoadCapacity(ctx context.Context, date time.Time) (models.CapacitySnapshot, bool, error)
}

// Controller is the single owner of the dashboard's mutable state: the
// calendar cursors and the last published view model.
type Controller struct {
	fetcher   Fetcher
	actions   Actions
	confirmer Confirmer
	renderer  Renderer
	store     SnapshotStore
	logger    *zerolog.Logger

	now func() time.Time

	mu     sync.Mutex
	cursor calendar.Cursor
	vm     ViewModel

	// Per-kind fetch generations. A response is applied only while its
	// generation still matches; navigation bumps the generation so a slow
	// response for an abandoned window can never overwrite a newer one.
	bookingsGen uint64
	invoicesGen uint64
	capacityGen uint64
}

// New constructs a controller anchored on the current time: bookings focused
// on today, invoices on the last completed week. renderer and store may be
// nil.
func New(fetcher Fetcher, actions Actions, confirmer Confirmer, renderer Renderer, store SnapshotStore, logger *zerolog.Logger) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		actions:   actions,
		confirmer: confirmer,
		renderer:  renderer,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
	c.cursor = calendar.NewCursor(c.now())
	return c
}

// Cursor returns the current navigation state.
func (c *Controller) Cursor() calendar.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// ViewModel returns the last published view model.
func (c *Controller) ViewModel() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vm
}

// ShiftDay moves the focus date and refreshes all three panes; the invoice
// week follows the new focus so the panes never show mismatched periods.
func (c *Controller) ShiftDay(ctx context.Context, days int) error {
	c.mu.Lock()
	c.cursor = c.cursor.ShiftDay(days)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// ShiftWeek moves the invoice week alone and refreshes only that pane.
func (c *Controller) ShiftWeek(ctx context.Context, weeks int) error {
	c.mu.Lock()
	c.cursor = c.cursor.ShiftWeek(weeks)
	c.mu.Unlock()
	return c.RefreshInvoices(ctx)
}

// ResetToToday re-anchors both cursors on the current date and refreshes.
func (c *Controller) ResetToToday(ctx context.Context) error {
	c.mu.Lock()
	c.cursor = c.cursor.ResetToToday(c.now())
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// ShowDate jumps the focus straight to date (direct date-picker entry) and
// refreshes everything.
func (c *Controller) ShowDate(ctx context.Context, date time.Time) error {
	c.mu.Lock()
	c.cursor = calendar.Cursor{Focus: date, WeekStart: calendar.WeekStartFor(date)}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// ShowWeek jumps the invoice pane to the week containing start and refreshes
// only that pane.
func (c *Controller) ShowWeek(ctx context.Context, start time.Time) error {
	c.mu.Lock()
	c.cursor.WeekStart = calendar.WeekStartFor(start)
	c.mu.Unlock()
	return c.RefreshInvoices(ctx)
}

// Refresh re-fetches bookings, invoices, and capacity for the current
// cursor and publishes the combined view model. A per-pane transport failure
// leaves that pane on last-good data; the refresh as a whole still succeeds
// unless the window was superseded mid-flight.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	cur := c.cursor
	c.bookingsGen++
	c.invoicesGen++
	c.capacityGen++
	bGen, iGen, cGen := c.bookingsGen, c.invoicesGen, c.capacityGen
	c.mu.Unlock()

	if err := c.refreshBookings(ctx, cur.Focus, bGen); err != nil {
		return err
	}
	if err := c.refreshInvoicesWindow(ctx, cur.WeekStart, iGen); err != nil {
		return err
	}
	if err := c.refreshCapacity(ctx, cur.Focus, cGen); err != nil {
		return err
	}

	c.publish()
	return nil
}

// RefreshInvoices re-fetches and re-aggregates the invoice pane alone.
func (c *Controller) RefreshInvoices(ctx context.Context) error {
	c.mu.Lock()
	cur := c.cursor
	c.invoicesGen++
	gen := c.invoicesGen
	c.mu.Unlock()

	if err := c.refreshInvoicesWindow(ctx, cur.WeekStart, gen); err != nil {
		return err
	}
	c.publish()
	return nil
}

// WarmStart fills the panes from the snapshot store before the first fetch,
// so a restarted process shows last-good data immediately.
func (c *Controller) WarmStart(ctx context.Context) {
	if c.store == nil {
		return
	}
	cur := c.Cursor()

	if rows, ok, err := c.store.LoadBookings(ctx, cur.Focus); err == nil && ok {
		c.mu.Lock()
		c.vm.Bookings = BookingsPane{Date: cur.Focus.Format(dateLayout), Result: classify.Classify(rows), Stale: true}
		c.mu.Unlock()
	}
	if rows, ok, err := c.store.LoadInvoices(ctx, cur.WeekStart); err == nil && ok {
		c.mu.Lock()
		c.vm.Invoices = c.buildInvoicesPane(cur.WeekStart, rows, true)
		c.mu.Unlock()
	}
	if snap, ok, err := c.store.LoadCapacity(ctx, cur.Focus); err == nil && ok {
		c.mu.Lock()
		c.vm.Capacity = CapacityPane{Date: cur.Focus.Format(dateLayout), View: capacity.Present(snap), Stale: true}
		c.mu.Unlock()
	}
	c.publish()
}

func (c *Controller) refreshBookings(ctx context.Context, focus time.Time, gen uint64) error {
	dateKey := focus.Format(dateLayout)

	rows, fetchErr := c.fetcher.Bookings(ctx, focus)
	stale := false
	if fetchErr != nil {
		metrics.IncFetch("bookings", "error")
		c.logger.Warn().Err(fetchErr).Str("date", dateKey).Msg("bookings fetch failed")
		fallback, ok := c.loadBookingsFallback(ctx, focus)
		if !ok {
			return c.markPaneStale(gen, paneBookings)
		}
		rows = fallback
		stale = true
	} else {
		metrics.IncFetch("bookings", "ok")
		if c.store != nil {
			if err := c.store.SaveBookings(ctx, focus, rows); err != nil {
				c.logger.Warn().Err(err).Msg("persist bookings snapshot")
			}
		}
	}

	result := classify.Classify(rows)
	if n := len(result.Unclassified); n > 0 && !stale {
		metrics.AddUnclassified(n)
		for _, b := range result.Unclassified {
			c.logger.Warn().
				Int64("booking_id", b.ID).
				Str("service_type", b.ServiceType).
				Msg("booking matched no service bucket")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.bookingsGen {
		metrics.IncStaleDiscard("bookings")
		return ErrStaleWindow
	}
	c.vm.Bookings = BookingsPane{Date: dateKey, Result: result, Stale: stale}
	return nil
}

func (c *Controller) refreshInvoicesWindow(ctx context.Context, weekStart time.Time, gen uint64) error {
	startKey := weekStart.Format(dateLayout)

	rows, fetchErr := c.fetcher.WeeklyInvoices(ctx, weekStart)
	stale := false
	if fetchErr != nil {
		metrics.IncFetch("invoices", "error")
		c.logger.Warn().Err(fetchErr).Str("week_start", startKey).Msg("invoices fetch failed")
		fallback, ok := c.loadInvoicesFallback(ctx, weekStart)
		if !ok {
			return c.markPaneStale(gen, paneInvoices)
		}
		rows = fallback
		stale = true
	} else {
		metrics.IncFetch("invoices", "ok")
		if c.store != nil {
			if err := c.store.SaveInvoices(ctx, weekStart, rows); err != nil {
				c.logger.Warn().Err(err).Msg("persist invoices snapshot")
			}
		}
	}

	pane := c.buildInvoicesPane(weekStart, rows, stale)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.invoicesGen {
		metrics.IncStaleDiscard("invoices")
		return ErrStaleWindow
	}
	c.vm.Invoices = pane
	return nil
}

func (c *Controller) refreshCapacity(ctx context.Context, focus time.Time, gen uint64) error {
	dateKey := focus.Format(dateLayout)

	snap, fetchErr := c.fetcher.Capacity(ctx, focus)
	stale := false
	if fetchErr != nil {
		metrics.IncFetch("capacity", "error")
		c.logger.Warn().Err(fetchErr).Str("date", dateKey).Msg("capacity fetch failed")
		fallback, ok := c.loadCapacityFallback(ctx, focus)
		if !ok {
			return c.markPaneStale(gen, paneCapacity)
		}
		snap = fallback
		stale = true
	} else {
		metrics.IncFetch("capacity", "ok")
		if c.store != nil {
			if err := c.store.SaveCapacity(ctx, focus, snap); err != nil {
				c.logger.Warn().Err(err).Msg("persist capacity snapshot")
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.capacityGen {
		metrics.IncStaleDiscard("capacity")
		return ErrStaleWindow
	}
	c.vm.Capacity = CapacityPane{Date: dateKey, View: capacity.Present(snap), Stale: stale}
	return nil
}

// CancelBooking confirms and dispatches a cancellation, then refreshes so
// the result becomes visible.
func (c *Controller) CancelBooking(ctx context.Context, id int64) error {
	if !c.confirmer.Confirm("Cancel this booking?") {
		metrics.IncActionDeclined("cancel_booking")
		return ErrDeclined
	}
	corrID, err := c.actions.CancelBooking(ctx, id)
	if err != nil {
		return err
	}
	metrics.IncActionDispatched("cancel_booking")
	c.logger.Info().Int64("booking_id", id).Str("correlation_id", corrID).Msg("booking cancel dispatched")
	return c.Refresh(ctx)
}

// MarkBookingPaid confirms and dispatches a single-day payment, then
// refreshes.
func (c *Controller) MarkBookingPaid(ctx context.Context, id int64) error {
	if !c.confirmer.Confirm("Mark this booking paid?") {
		metrics.IncActionDeclined("mark_booking_paid")
		return ErrDeclined
	}
	corrID, err := c.actions.MarkBookingPaid(ctx, id)
	if err != nil {
		return err
	}
	metrics.IncActionDispatched("mark_booking_paid")
	c.logger.Info().Int64("booking_id", id).Str("correlation_id", corrID).Msg("booking mark-paid dispatched")
	return c.Refresh(ctx)
}

// MarkInvoicePaid confirms and dispatches a weekly invoice payment for the
// current invoice week, then refreshes the invoice pane.
func (c *Controller) MarkInvoicePaid(ctx context.Context, email string) error {
	if !c.confirmer.Confirm("Mark this week's invoice paid?") {
		metrics.IncActionDeclined("mark_invoice_paid")
		return ErrDeclined
	}
	weekStart := c.Cursor().WeekStart
	corrID, err := c.actions.MarkInvoicePaid(ctx, email, weekStart)
	if err != nil {
		return err
	}
	metrics.IncActionDispatched("mark_invoice_paid")
	c.logger.Info().Str("email", email).Str("correlation_id", corrID).Msg("invoice mark-paid dispatched")
	return c.RefreshInvoices(ctx)
}

func (c *Controller) buildInvoicesPane(weekStart time.Time, rows []models.InvoiceRow, stale bool) InvoicesPane {
	sorted := make([]models.InvoiceRow, len(rows))
	copy(sorted, rows)
	invoice.SortRows(sorted)
	return InvoicesPane{
		WeekStart: weekStart.Format(dateLayout),
		WeekEnd:   calendar.WeekEnd(weekStart).Format(dateLayout),
		Rows:      sorted,
		Summary:   invoice.Aggregate(sorted),
		Stale:     stale,
	}
}

type pane int

const (
	paneBookings pane = iota
	paneInvoices
	paneCapacity
)

// markPaneStale flags a pane as carrying last-good data after a failed fetch
// with no stored fallback. The pane's content is left untouched.
func (c *Controller) markPaneStale(gen uint64, p pane) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch p {
	case paneBookings:
		if gen != c.bookingsGen {
			metrics.IncStaleDiscard("bookings")
			return ErrStaleWindow
		}
		c.vm.Bookings.Stale = true
	case paneInvoices:
		if gen != c.invoicesGen {
			metrics.IncStaleDiscard("invoices")
			return ErrStaleWindow
		}
		c.vm.Invoices.Stale = true
	case paneCapacity:
		if gen != c.capacityGen {
			metrics.IncStaleDiscard("capacity")
			return ErrStaleWindow
		}
		c.vm.Capacity.Stale = true
	}
	return nil
}

func (c *Controller) loadBookingsFallback(ctx context.Context, date time.Time) ([]models.Booking, bool) {
	if c.store == nil {
		return nil, false
	}
	rows, ok, err := c.store.LoadBookings(ctx, date)
	if err != nil {
		c.logger.Warn().Err(err).Msg("load bookings fallback")
		return nil, false
	}
	return rows, ok
}

func (c *Controller) loadInvoicesFallback(ctx context.Context, weekStart time.Time) ([]models.InvoiceRow, bool) {
	if c.store == nil {
		return nil, false
	}
	rows, ok, err := c.store.LoadInvoices(ctx, weekStart)
	if err != nil {
		c.logger.Warn().Err(err).Msg("load invoices fallback")
		return nil, false
	}
	return rows, ok
}

func (c *Controller) loadCapacityFallback(ctx context.Context, date time.Time) (models.CapacitySnapshot, bool) {
	if c.store == nil {
		return models.CapacitySnapshot{}, false
	}
	snap, ok, err := c.store.LoadCapacity(ctx, date)
	if err != nil {
		c.logger.Warn().Err(err).Msg("load capacity fallback")
		return models.CapacitySnapshot{}, false
	}
	return snap, ok
}

func (c *Controller) publish() {
	c.mu.Lock()
	c.vm.UpdatedAt = c.now()
	vm := c.vm
	renderer := c.renderer
	c.mu.Unlock()

	if renderer != nil {
		renderer.Render(vm)
	}
}
