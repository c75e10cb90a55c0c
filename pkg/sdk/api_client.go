package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/pkg/schema"
)

// RemoteError is a failed console API call. Message comes from the response's
// "error" field when present, else the HTTP status text.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("console api: %s (HTTP %d)", e.Message, e.StatusCode)
}

// APIClient calls the console HTTP API.
type APIClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewAPIClient returns a client for baseURL, e.g. "http://localhost:7002".
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		rerr := &RemoteError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			rerr.Message = payload.Error
		}
		return rerr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login opens a session and stores its token on the client.
func (c *APIClient) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password}, &res)
	if err != nil {
		return LoginResult{}, err
	}
	c.Token = res.Token
	return res, nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// StatusCatalog is the body of GET /api/statuses.
type StatusCatalog struct {
	Orders   []catalog.Descriptor `json:"orders"`
	Tracking []catalog.Descriptor `json:"tracking"`
}

func (c *APIClient) Statuses(ctx context.Context) (StatusCatalog, error) {
	var res StatusCatalog
	err := c.do(ctx, http.MethodGet, "/api/statuses", nil, &res)
	return res, err
}

func (c *APIClient) ListOrders(ctx context.Context) ([]schema.OrderRecord, error) {
	var res []schema.OrderRecord
	err := c.do(ctx, http.MethodGet, "/api/orders", nil, &res)
	return res, err
}

// StatusChange is a requested transition with its optional ledger fields.
type StatusChange struct {
	ID          string `json:"id,omitempty"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Details     string `json:"details,omitempty"`
}

func (c *APIClient) SetOrderStatus(ctx context.Context, id string, change StatusChange) (schema.OrderRecord, error) {
	var res schema.OrderRecord
	err := c.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(id)+"/status", change, &res)
	return res, err
}

// TrackingQuery filters ListTracking. Empty fields are not sent.
type TrackingQuery struct {
	Code        string
	OrderNumber string
	Status      string
	Query       string
}

func (q TrackingQuery) encode() string {
	v := url.Values{}
	for key, val := range map[string]string{"code": q.Code, "order": q.OrderNumber, "status": q.Status, "q": q.Query} {
		if val != "" {
			v.Set(key, val)
		}
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *APIClient) ListTracking(ctx context.Context, q TrackingQuery) ([]schema.TrackingRecord, error) {
	var res []schema.TrackingRecord
	err := c.do(ctx, http.MethodGet, "/api/tracking"+q.encode(), nil, &res)
	return res, err
}

// NewTracking is the body of POST /api/tracking.
type NewTracking struct {
	OrderNumber      string `json:"order_number"`
	CustomerName     string `json:"customer_name,omitempty"`
	CustomerEmail    string `json:"customer_email,omitempty"`
	DestinationCity  string `json:"destination_city,omitempty"`
	DestinationState string `json:"destination_state,omitempty"`
	Location         string `json:"location,omitempty"`
	Description      string `json:"description,omitempty"`
}

func (c *APIClient) CreateTracking(ctx context.Context, in NewTracking) (schema.TrackingRecord, error) {
	var res schema.TrackingRecord
	err := c.do(ctx, http.MethodPost, "/api/tracking", in, &res)
	return res, err
}

// UpdateTracking appends a ledger entry to the record change.ID.
func (c *APIClient) UpdateTracking(ctx context.Context, change StatusChange) (schema.TrackingRecord, error) {
	var res schema.TrackingRecord
	err := c.do(ctx, http.MethodPut, "/api/tracking", change, &res)
	return res, err
}

func (c *APIClient) DeleteTracking(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tracking?id="+url.QueryEscape(id), nil, nil)
}

// Notification mirrors a queued toast as served by the API.
type Notification struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	TTLMs     int64     `json:"ttlMs"`
	SoundKey  string    `json:"soundKey,omitempty"`
}

func (c *APIClient) Notifications(ctx context.Context) ([]Notification, error) {
	var res []Notification
	err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &res)
	return res, err
}

func (c *APIClient) Dismiss(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}
