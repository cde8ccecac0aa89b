// Package api is the only boundary to the Easy Sport Book backend. Every
// response passes through one envelope decoder, and every mutation
// invalidates the cached reads it may have stale-ified.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"sportbook/internal/metrics"
	"sportbook/internal/model"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:5001/api"

// Client is an HTTP JSON client for the backend.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client. An empty baseURL falls back to
// DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional read-through caching for GET
// endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ForUser returns a shallow copy acting on behalf of a backend user; the
// backend still authorizes every call.
func (c *Client) ForUser(userID string) *Client {
	clone := *c
	clone.userID = userID
	return &clone
}

// envelope is the single response shape boundary: the backend wraps
// payloads as {"data": ...} on newer endpoints and returns them bare on
// older ones. Nothing outside this file guesses shapes.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func decodeBody(status int, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		body = env.Data
	}
	if status >= 300 {
		apiErr := &APIError{Status: status}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		} else {
			// older endpoints: {"message": "..."} at the top level
			_ = json.Unmarshal(body, apiErr)
		}
		apiErr.Status = status
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPIRequest("network_error")
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncAPIRequest("network_error")
		return err
	}
	if err := decodeBody(resp.StatusCode, raw, out); err != nil {
		metrics.IncAPIRequest("error")
		return err
	}
	metrics.IncAPIRequest("ok")
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, cacheKey string, out any) error {
	if c.readCache(ctx, cacheKey, out) {
		return nil
	}
	if err := c.do(ctx, http.MethodGet, path, query, nil, out); err != nil {
		return err
	}
	c.writeCache(ctx, cacheKey, out)
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 || key == "" {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 || key == "" {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

// invalidate drops cached reads matching a key pattern after a mutation,
// the refetch-after-mutation analogue for the shared cache.
func (c *Client) invalidate(ctx context.Context, pattern string) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = c.redis.Del(ctx, iter.Val()).Err()
	}
}

// --- auth ---

// LoginResponse is the session the backend hands back on login.
type LoginResponse struct {
	Token string            `json:"token"`
	User  model.UserProfile `json:"user"`
}

// Login authenticates by email/password. Use IsEmailNotVerified on the
// returned error to tell an unverified address from bad credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail redeems an email verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	q := url.Values{}
	q.Set("token", token)
	return c.do(ctx, http.MethodGet, "/auth/verify-email", q, nil, nil)
}

// Profile fetches the acting user's profile and role assignments.
func (c *Client) Profile(ctx context.Context) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- browsing ---

// ListTenants returns active tenants.
func (c *Client) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var out []model.Tenant
	if err := c.get(ctx, "/tenants", nil, "tenants", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBranches returns a tenant's branches.
func (c *Client) ListBranches(ctx context.Context, tenantID string) ([]model.Branch, error) {
	var out []model.Branch
	path := "/tenants/" + url.PathEscape(tenantID) + "/branches"
	if err := c.get(ctx, path, nil, "branches:"+tenantID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListResources returns a branch's bookable resources.
func (c *Client) ListResources(ctx context.Context, branchID string) ([]model.Resource, error) {
	var out []model.Resource
	path := "/branches/" + url.PathEscape(branchID) + "/resources"
	if err := c.get(ctx, path, nil, "resources:"+branchID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetResource returns one resource.
func (c *Client) GetResource(ctx context.Context, resourceID string) (*model.Resource, error) {
	var out model.Resource
	path := "/resources/" + url.PathEscape(resourceID)
	if err := c.get(ctx, path, nil, "resource:"+resourceID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- calendar reads ---

// WeekCalendar is the backend's calendar payload for one date range.
type WeekCalendar struct {
	Bookings     []model.Booking     `json:"bookings"`
	BlockedSlots []model.BlockedSlot `json:"blockedSlots"`
	Discounts    []model.Discount    `json:"discounts"`
}

const dateOnly = "2006-01-02"

// BranchCalendar fetches bookings, blocked slots and discounts for a
// branch, narrowed to [from, to).
func (c *Client) BranchCalendar(ctx context.Context, branchID string, from, to time.Time) (*WeekCalendar, error) {
	q := url.Values{}
	q.Set("from", from.Format(dateOnly))
	q.Set("to", to.Format(dateOnly))

	var out WeekCalendar
	path := "/branches/" + url.PathEscape(branchID) + "/calendar"
	key := fmt.Sprintf("calendar:branch:%s:%s:%s", branchID, q.Get("from"), q.Get("to"))
	if err := c.get(ctx, path, q, key, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResourceCalendar is BranchCalendar narrowed to one resource.
func (c *Client) ResourceCalendar(ctx context.Context, resourceID string, from, to time.Time) (*WeekCalendar, error) {
	q := url.Values{}
	q.Set("from", from.Format(dateOnly))
	q.Set("to", to.Format(dateOnly))

	var out WeekCalendar
	path := "/resources/" + url.PathEscape(resourceID) + "/calendar"
	key := fmt.Sprintf("calendar:resource:%s:%s:%s", resourceID, q.Get("from"), q.Get("to"))
	if err := c.get(ctx, path, q, key, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBranchHours returns the branch's weekly hours records. A day absent
// from the result has no record; interpretation is the caller's policy.
func (c *Client) GetBranchHours(ctx context.Context, branchID string) ([]model.BranchHours, error) {
	var out []model.BranchHours
	path := "/branches/" + url.PathEscape(branchID) + "/hours"
	if err := c.get(ctx, path, nil, "hours:"+branchID, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBranchHours replaces the branch's weekly hours.
func (c *Client) UpdateBranchHours(ctx context.Context, branchID string, hours []model.BranchHours) error {
	path := "/branches/" + url.PathEscape(branchID) + "/hours"
	if err := c.do(ctx, http.MethodPut, path, nil, hours, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "hours:"+branchID)
	c.invalidate(ctx, "calendar:branch:"+branchID+":*")
	return nil
}

// --- blocked slots ---

// BlockedSlotRequest creates one blocked interval. Empty ResourceID blocks
// the whole branch.
type BlockedSlotRequest struct {
	ResourceID string `json:"resourceId,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Reason     string `json:"reason,omitempty"`
}

// CreateBlockedSlot declares an interval unavailable.
func (c *Client) CreateBlockedSlot(ctx context.Context, branchID string, req BlockedSlotRequest) (*model.BlockedSlot, error) {
	var out model.BlockedSlot
	path := "/branches/" + url.PathEscape(branchID) + "/blocked-slots"
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	c.invalidate(ctx, "calendar:*")
	return &out, nil
}

// DeleteBlockedSlot removes a blocked interval.
func (c *Client) DeleteBlockedSlot(ctx context.Context, branchID, slotID string) error {
	path := "/branches/" + url.PathEscape(branchID) + "/blocked-slots/" + url.PathEscape(slotID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "calendar:*")
	return nil
}

// --- booking lifecycle ---

// BookingRequest creates a booking; conflict detection stays server-side.
type BookingRequest struct {
	ResourceID   string    `json:"resourceId"`
	StartAt      time.Time `json:"startAt"`
	EndAt        time.Time `json:"endAt"`
	DiscountCode string    `json:"discountCode,omitempty"`
	GuestName    string    `json:"guestName,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// CreateBooking creates a pending booking.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	var out model.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", nil, req, &out); err != nil {
		return nil, err
	}
	c.invalidate(ctx, "calendar:*")
	return &out, nil
}

// ConfirmBooking transitions pending -> confirmed.
func (c *Client) ConfirmBooking(ctx context.Context, bookingID string) error {
	return c.bookingAction(ctx, bookingID, "confirm", nil)
}

// RejectBooking transitions pending -> rejected with a reason.
func (c *Client) RejectBooking(ctx context.Context, bookingID, reason string) error {
	return c.bookingAction(ctx, bookingID, "reject", map[string]string{"reason": reason})
}

// CancelBooking cancels a booking with an optional reason.
func (c *Client) CancelBooking(ctx context.Context, bookingID, reason string) error {
	var body any
	if reason != "" {
		body = map[string]string{"reason": reason}
	}
	return c.bookingAction(ctx, bookingID, "cancel", body)
}

// PayBooking charges a stored card for a booking.
func (c *Client) PayBooking(ctx context.Context, bookingID, cardID string) error {
	return c.bookingAction(ctx, bookingID, "pay", map[string]string{"cardId": cardID})
}

func (c *Client) bookingAction(ctx context.Context, bookingID, action string, body any) error {
	path := "/bookings/" + url.PathEscape(bookingID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return err
	}
	c.invalidate(ctx, "calendar:*")
	return nil
}

// GetBooking returns one booking.
func (c *Client) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	var out model.Booking
	path := "/bookings/" + url.PathEscape(bookingID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyBookings returns the acting user's bookings, newest first.
func (c *Client) ListMyBookings(ctx context.Context) ([]model.Booking, error) {
	var out []model.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings/my", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBranchBookings returns a branch's bookings within [from, to).
func (c *Client) ListBranchBookings(ctx context.Context, branchID string, from, to time.Time) ([]model.Booking, error) {
	q := url.Values{}
	q.Set("from", from.Format(dateOnly))
	q.Set("to", to.Format(dateOnly))
	var out []model.Booking
	path := "/branches/" + url.PathEscape(branchID) + "/bookings"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPendingBookings returns a branch's pending bookings for admins.
func (c *Client) ListPendingBookings(ctx context.Context, branchID string) ([]model.Booking, error) {
	q := url.Values{}
	q.Set("status", string(model.StatusPending))
	var out []model.Booking
	path := "/branches/" + url.PathEscape(branchID) + "/bookings"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- discounts ---

// DiscountQuoteRequest previews pricing for a candidate booking.
type DiscountQuoteRequest struct {
	Code       string    `json:"code,omitempty"`
	TenantID   string    `json:"tenantId,omitempty"`
	BranchID   string    `json:"branchId,omitempty"`
	ResourceID string    `json:"resourceId"`
	StartAt    time.Time `json:"startAt"`
	EndAt      time.Time `json:"endAt"`
}

// DiscountQuote is the backend's price preview.
type DiscountQuote struct {
	OriginalPrice float64 `json:"originalPrice"`
	TotalPrice    float64 `json:"totalPrice"`
	Discount      float64 `json:"discount"`
}

// CalculateDiscount asks the backend to price a time range, optionally
// with a promo code. Validation of the code is entirely server-side.
func (c *Client) CalculateDiscount(ctx context.Context, req DiscountQuoteRequest) (*DiscountQuote, error) {
	var out DiscountQuote
	if err := c.do(ctx, http.MethodPost, "/discounts/calculate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthCheck pings the backend.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}
