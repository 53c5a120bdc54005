// Package daycareapi is the HTTP client for the daycare server's admin API:
// booking/invoice/capacity reads plus the mutating actions the dashboard can
// trigger. Reads can be served from an optional short-TTL Redis cache.
package daycareapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pawboard/internal/models"
)

const dateLayout = "2006-01-02"

// Client calls the daycare server's admin endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// New constructs a client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Bookings fetches all booking rows for one date.
func (c *Client) Bookings(ctx context.Context, date time.Time) ([]models.Booking, error) {
	day := date.Format(dateLayout)
	endpoint := fmt.Sprintf("%s/api/admin/bookings?date=%s", c.baseURL, url.QueryEscape(day))
	cacheKey := "bookings:" + day

	var rows []models.Booking
	if c.readCache(ctx, cacheKey, &rows) {
		return rows, nil
	}
	if err := c.doGet(ctx, endpoint, &rows); err != nil {
		return nil, fmt.Errorf("fetch bookings for %s: %w", day, err)
	}
	c.writeCache(ctx, cacheKey, rows)
	return rows, nil
}

// WeeklyInvoices fetches the invoice rows for the week starting at weekStart.
func (c *Client) WeeklyInvoices(ctx context.Context, weekStart time.Time) ([]models.InvoiceRow, error) {
	start := weekStart.Format(dateLayout)
	endpoint := fmt.Sprintf("%s/api/admin/invoices/weekly?start=%s", c.baseURL, url.QueryEscape(start))
	cacheKey := "invoices:" + start

	var rows []models.InvoiceRow
	if c.readCache(ctx, cacheKey, &rows) {
		return rows, nil
	}
	if err := c.doGet(ctx, endpoint, &rows); err != nil {
		return nil, fmt.Errorf("fetch invoices for week %s: %w", start, err)
	}
	c.writeCache(ctx, cacheKey, rows)
	return rows, nil
}

// Capacity fetches the utilization snapshot for one date.
func (c *Client) Capacity(ctx context.Context, date time.Time) (models.CapacitySnapshot, error) {
	day := date.Format(dateLayout)
	endpoint := fmt.Sprintf("%s/api/admin/bookings/capacity?date=%s", c.baseURL, url.QueryEscape(day))
	cacheKey := "capacity:" + day

	var snap models.CapacitySnapshot
	if c.readCache(ctx, cacheKey, &snap) {
		return snap, nil
	}
	if err := c.doGet(ctx, endpoint, &snap); err != nil {
		return models.CapacitySnapshot{}, fmt.Errorf("fetch capacity for %s: %w", day, err)
	}
	c.writeCache(ctx, cacheKey, snap)
	return snap, nil
}

// CancelBooking asks the server to cancel a booking. It returns the
// correlation ID sent with the request; the outcome is observed on the next
// refresh, not awaited here.
func (c *Client) CancelBooking(ctx context.Context, id int64) (string, error) {
	endpoint := fmt.Sprintf("%s/api/admin/bookings/%d/cancel", c.baseURL, id)
	corrID, err := c.doAction(ctx, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("cancel booking %d: %w", id, err)
	}
	c.invalidate(ctx, "bookings:*", "invoices:*", "capacity:*")
	return corrID, nil
}

// MarkBookingPaid asks the server to mark one booking paid.
func (c *Client) MarkBookingPaid(ctx context.Context, id int64) (string, error) {
	endpoint := fmt.Sprintf("%s/api/admin/bookings/%d/mark-paid", c.baseURL, id)
	corrID, err := c.doAction(ctx, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("mark booking %d paid: %w", id, err)
	}
	c.invalidate(ctx, "bookings:*", "invoices:*")
	return corrID, nil
}

// MarkInvoicePaid asks the server to mark a customer's weekly invoice paid.
func (c *Client) MarkInvoicePaid(ctx context.Context, email string, weekStart time.Time) (string, error) {
	endpoint := fmt.Sprintf("%s/api/admin/invoices/mark-paid", c.baseURL)
	body := map[string]string{
		"email": email,
		"start": weekStart.Format(dateLayout),
	}
	corrID, err := c.doAction(ctx, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("mark invoice paid for %s: %w", email, err)
	}
	c.invalidate(ctx, "bookings:*", "invoices:*")
	return corrID, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

// invalidate drops cached reads whose data an action may have changed, so
// the follow-up refresh observes the action instead of a stale cache hit.
func (c *Client) invalidate(ctx context.Context, patterns ...string) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	for _, pattern := range patterns {
		keys, err := c.redis.Keys(ctx, pattern).Result()
		if err != nil || len(keys) == 0 {
			continue
		}
		_ = c.redis.Del(ctx, keys...).Err()
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

// doAction POSTs to endpoint with a fresh correlation ID and returns that ID.
func (c *Client) doAction(ctx context.Context, endpoint string, body any) (string, error) {
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	corrID := uuid.NewString()
	req.Header.Set("X-Correlation-Id", corrID)
	c.addHeaders(req)

	if err := c.do(req, nil); err != nil {
		return "", err
	}
	return corrID, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
