package dashboard

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pawboard/internal/models"
)

// fakeFetcher lets each test script the upstream responses.
type fakeFetcher struct {
	mu            sync.Mutex
	bookingCalls  int
	invoiceCalls  int
	capacityCalls int

	bookings func(date time.Time) ([]models.Booking, error)
	invoices func(weekStart time.Time) ([]models.InvoiceRow, error)
	capacity func(date time.Time) (models.CapacitySnapshot, error)
}

func (f *fakeFetcher) Bookings(_ context.Context, date time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	f.bookingCalls++
	f.mu.Unlock()
	if f.bookings == nil {
		return nil, nil
	}
	return f.bookings(date)
}

func (f *fakeFetcher) WeeklyInvoices(_ context.Context, weekStart time.Time) ([]models.InvoiceRow, error) {
	f.mu.Lock()
	f.invoiceCalls++
	f.mu.Unlock()
	if f.invoices == nil {
		return nil, nil
	}
	return f.invoices(weekStart)
}

func (f *fakeFetcher) Capacity(_ context.Context, date time.Time) (models.CapacitySnapshot, error) {
	f.mu.Lock()
	f.capacityCalls++
	f.mu.Unlock()
	if f.capacity == nil {
		return models.CapacitySnapshot{}, nil
	}
	return f.capacity(date)
}

type mockActions struct {
	mock.Mock
}

func (m *mockActions) CancelBooking(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *mockActions) MarkBookingPaid(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *mockActions) MarkInvoicePaid(ctx context.Context, email string, weekStart time.Time) (string, error) {
	args := m.Called(ctx, email, weekStart)
	return args.String(0), args.Error(1)
}

type confirmStub struct {
	answer  bool
	prompts []string
}

func (s *confirmStub) Confirm(prompt string) bool {
	s.prompts = append(s.prompts, prompt)
	return s.answer
}

type recordingRenderer struct {
	mu     sync.Mutex
	models []ViewModel
}

func (r *recordingRenderer) Render(vm ViewModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, vm)
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	bookings map[string][]models.Booking
	invoices map[string][]models.InvoiceRow
	capacity map[string]models.CapacitySnapshot
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[string][]models.Booking{},
		invoices: map[string][]models.InvoiceRow{},
		capacity: map[string]models.CapacitySnapshot{},
	}
}

func (s *memStore) SaveBookings(_ context.Context, date time.Time, rows []models.Booking) error {
	s.bookings[date.Format(dateLayout)] = rows
	return nil
}

func (s *memStore) LoadBookings(_ context.Context, date time.Time) ([]models.Booking, bool, error) {
	rows, ok := s.bookings[date.Format(dateLayout)]
	return rows, ok, nil
}

func (s *memStore) SaveInvoices(_ context.Context, weekStart time.Time, rows []models.InvoiceRow) error {
	s.invoices[weekStart.Format(dateLayout)] = rows
	return nil
}

func (s *memStore) LoadInvoices(_ context.Context, weekStart time.Time) ([]models.InvoiceRow, bool, error) {
	rows, ok := s.invoices[weekStart.Format(dateLayout)]
	return rows, ok, nil
}

func (s *memStore) SaveCapacity(_ context.Context, date time.Time, snap models.CapacitySnapshot) error {
	s.capacity[date.Format(dateLayout)] = snap
	return nil
}

func (s *memStore) LoadCapacity(_ context.Context, date time.Time) (models.CapacitySnapshot, bool, error) {
	snap, ok := s.capacity[date.Format(dateLayout)]
	return snap, ok, nil
}

// wednesday is the fixed "now" all controller tests run at.
var wednesday = time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC)

func newTestController(f Fetcher, a Actions, conf Confirmer, r Renderer, s SnapshotStore) *Controller {
	logger := zerolog.New(io.Discard)
	c := New(f, a, conf, r, s, &logger)
	c.now = func() time.Time { return wednesday }
	c.cursor = c.cursor.ResetToToday(wednesday).ShiftWeek(-1) // deterministic anchor
	return c
}

func TestController_InitialCursor(t *testing.T) {
	c := newTestController(&fakeFetcher{}, nil, nil, nil, nil)
	cur := c.Cursor()
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), cur.Focus)
	// Invoice pane anchors on the last completed week.
	assert.Equal(t, time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC), cur.WeekStart)
}

func TestController_Refresh(t *testing.T) {
	fetcher := &fakeFetcher{
		bookings: func(date time.Time) ([]models.Booking, error) {
			assert.Equal(t, "2025-06-04", date.Format(dateLayout))
			return []models.Booking{
				{ID: 1, ServiceType: "Daycare (6 AM - 3 PM)", Time: "10:00", Status: "APPROVED"},
				{ID: 2, ServiceType: "Boarding", Status: "APPROVED"},
				{ID: 3, ServiceType: "Grooming", Status: "APPROVED"},
			}, nil
		},
		invoices: func(weekStart time.Time) ([]models.InvoiceRow, error) {
			assert.Equal(t, "2025-05-26", weekStart.Format(dateLayout))
			return []models.InvoiceRow{
				{CustomerName: "Zoe", CustomerEmail: "z@example.com", Amount: 5000, Paid: false},
				{CustomerName: "Alice", CustomerEmail: "a@example.com", Amount: 10000, Paid: true},
			}, nil
		},
		capacity: func(time.Time) (models.CapacitySnapshot, error) {
			daycare, daycareCap := 38, 40
			return models.CapacitySnapshot{Date: "2025-06-04", Daycare: &daycare, DaycareCap: &daycareCap}, nil
		},
	}
	renderer := &recordingRenderer{}
	c := newTestController(fetcher, nil, nil, renderer, nil)

	require.NoError(t, c.Refresh(context.Background()))
	vm := c.ViewModel()

	assert.Equal(t, "2025-06-04", vm.Bookings.Date)
	assert.Len(t, vm.Bookings.Result.Groups[0].Rows, 1)
	assert.Len(t, vm.Bookings.Result.Groups[3].Rows, 1)
	assert.Len(t, vm.Bookings.Result.Unclassified, 1)
	assert.False(t, vm.Bookings.Stale)

	assert.Equal(t, "2025-05-26", vm.Invoices.WeekStart)
	assert.Equal(t, "2025-06-01", vm.Invoices.WeekEnd)
	require.Len(t, vm.Invoices.Rows, 2)
	assert.Equal(t, "Alice", vm.Invoices.Rows[0].CustomerName) // sorted by name
	assert.Equal(t, models.Cents(15000), vm.Invoices.Summary.GrandTotal)
	assert.Equal(t, models.Cents(10000), vm.Invoices.Summary.PaidTotal)

	assert.Equal(t, "38", vm.Capacity.View.Daycare)
	assert.Equal(t, 95, vm.Capacity.View.DaycarePercent)

	assert.Equal(t, wednesday, vm.UpdatedAt)
	assert.Equal(t, 1, renderer.count())
}

func TestController_ShiftDayRederivesWeek(t *testing.T) {
	var lastBookingDate, lastInvoiceStart string
	fetcher := &fakeFetcher{
		bookings: func(date time.Time) ([]models.Booking, error) {
			lastBookingDate = date.Format(dateLayout)
			return nil, nil
		},
		invoices: func(ws time.Time) ([]models.InvoiceRow, error) {
			lastInvoiceStart = ws.Format(dateLayout)
			return nil, nil
		},
	}
	c := newTestController(fetcher, nil, nil, nil, nil)

	require.NoError(t, c.ShiftDay(context.Background(), 1))
	assert.Equal(t, "2025-06-05", lastBookingDate)
	// Day navigation snaps the invoice week to the focus week.
	assert.Equal(t, "2025-06-02", lastInvoiceStart)
}

func TestController_ShiftWeekLeavesBookingsAlone(t *testing.T) {
	fetcher := &fakeFetcher{}
	c := newTestController(fetcher, nil, nil, nil, nil)

	require.NoError(t, c.ShiftWeek(context.Background(), -1))
	assert.Equal(t, 0, fetcher.bookingCalls)
	assert.Equal(t, 0, fetcher.capacityCalls)
	assert.Equal(t, 1, fetcher.invoiceCalls)
	assert.Equal(t, "2025-05-19", c.ViewModel().Invoices.WeekStart)
}

func TestController_FailureKeepsLastGood(t *testing.T) {
	healthy := true
	fetcher := &fakeFetcher{
		bookings: func(time.Time) ([]models.Booking, error) {
			if !healthy {
				return nil, errors.New("connection refused")
			}
			return []models.Booking{{ID: 1, ServiceType: "Boarding", Status: "APPROVED"}}, nil
		},
	}
	c := newTestController(fetcher, nil, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	require.Len(t, c.ViewModel().Bookings.Result.Groups[3].Rows, 1)

	healthy = false
	require.NoError(t, c.Refresh(ctx))
	vm := c.ViewModel()
	// Prior rows still visible, now flagged stale.
	assert.Len(t, vm.Bookings.Result.Groups[3].Rows, 1)
	assert.True(t, vm.Bookings.Stale)
}

func TestController_FailureFallsBackToStore(t *testing.T) {
	st := newMemStore()
	st.bookings["2025-06-04"] = []models.Booking{{ID: 7, ServiceType: "Boarding", Status: "APPROVED"}}

	fetcher := &fakeFetcher{
		bookings: func(time.Time) ([]models.Booking, error) {
			return nil, errors.New("timeout")
		},
	}
	c := newTestController(fetcher, nil, nil, nil, st)

	require.NoError(t, c.Refresh(context.Background()))
	vm := c.ViewModel()
	require.Len(t, vm.Bookings.Result.Groups[3].Rows, 1)
	assert.Equal(t, int64(7), vm.Bookings.Result.Groups[3].Rows[0].Booking.ID)
	assert.True(t, vm.Bookings.Stale)
}

func TestController_SuccessfulFetchPersistsSnapshot(t *testing.T) {
	st := newMemStore()
	fetcher := &fakeFetcher{
		bookings: func(time.Time) ([]models.Booking, error) {
			return []models.Booking{{ID: 1, ServiceType: "Boarding", Status: "APPROVED"}}, nil
		},
	}
	c := newTestController(fetcher, nil, nil, nil, st)

	require.NoError(t, c.Refresh(context.Background()))
	saved, ok := st.bookings["2025-06-04"]
	require.True(t, ok)
	assert.Len(t, saved, 1)
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	var c *Controller
	fetcher := &fakeFetcher{
		bookings: func(time.Time) ([]models.Booking, error) {
			// Simulate the user navigating away while this fetch is in
			// flight: the generation moves on before the response lands.
			c.mu.Lock()
			c.bookingsGen++
			c.mu.Unlock()
			return []models.Booking{{ID: 99, ServiceType: "Boarding", Status: "APPROVED"}}, nil
		},
	}
	c = newTestController(fetcher, nil, nil, nil, nil)

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrStaleWindow)
	// The slow response never reached the view model.
	assert.Empty(t, c.ViewModel().Bookings.Result.Groups)
}

func TestController_WarmStart(t *testing.T) {
	st := newMemStore()
	st.bookings["2025-06-04"] = []models.Booking{{ID: 5, ServiceType: "Boarding", Status: "APPROVED"}}
	st.invoices["2025-05-26"] = []models.InvoiceRow{{CustomerName: "Alice", CustomerEmail: "a@example.com", Amount: 2500}}

	renderer := &recordingRenderer{}
	c := newTestController(&fakeFetcher{}, nil, nil, renderer, st)
	c.WarmStart(context.Background())

	vm := c.ViewModel()
	assert.True(t, vm.Bookings.Stale)
	require.Len(t, vm.Bookings.Result.Groups[3].Rows, 1)
	assert.True(t, vm.Invoices.Stale)
	assert.Equal(t, models.Cents(2500), vm.Invoices.Summary.GrandTotal)
	assert.Equal(t, 1, renderer.count())
}

func TestController_CancelBooking(t *testing.T) {
	actions := new(mockActions)
	conf := &confirmStub{answer: true}
	c := newTestController(&fakeFetcher{}, actions, conf, nil, nil)
	ctx := context.Background()

	actions.On("CancelBooking", ctx, int64(42)).Return("corr-1", nil).Once()

	require.NoError(t, c.CancelBooking(ctx, 42))
	actions.AssertExpectations(t)
	assert.Equal(t, []string{"Cancel this booking?"}, conf.prompts)
}

func TestController_DeclinedActionNotDispatched(t *testing.T) {
	actions := new(mockActions)
	conf := &confirmStub{answer: false}
	c := newTestController(&fakeFetcher{}, actions, conf, nil, nil)

	err := c.CancelBooking(context.Background(), 42)
	require.ErrorIs(t, err, ErrDeclined)
	err = c.MarkBookingPaid(context.Background(), 42)
	require.ErrorIs(t, err, ErrDeclined)
	err = c.MarkInvoicePaid(context.Background(), "a@example.com")
	require.ErrorIs(t, err, ErrDeclined)

	actions.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
	actions.AssertNotCalled(t, "MarkBookingPaid", mock.Anything, mock.Anything)
	actions.AssertNotCalled(t, "MarkInvoicePaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_MarkInvoicePaidUsesCurrentWeek(t *testing.T) {
	actions := new(mockActions)
	conf := &confirmStub{answer: true}
	fetcher := &fakeFetcher{}
	c := newTestController(fetcher, actions, conf, nil, nil)
	ctx := context.Background()

	weekStart := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
	actions.On("MarkInvoicePaid", ctx, "a@example.com", weekStart).Return("corr-2", nil).Once()

	require.NoError(t, c.MarkInvoicePaid(ctx, "a@example.com"))
	actions.AssertExpectations(t)
	// Only the invoice pane re-fetches afterwards.
	assert.Equal(t, 0, fetcher.bookingCalls)
	assert.Equal(t, 1, fetcher.invoiceCalls)
}

func TestController_ActionErrorPropagates(t *testing.T) {
	actions := new(mockActions)
	conf := &confirmStub{answer: true}
	c := newTestController(&fakeFetcher{}, actions, conf, nil, nil)
	ctx := context.Background()

	actions.On("MarkBookingPaid", ctx, int64(7)).Return("", errors.New("http 502")).Once()

	err := c.MarkBookingPaid(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}
