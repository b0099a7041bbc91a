// Package orderbackend talks to a remote order backend over its HTTP API. It
// lets the notification worker run without direct database access.
package orderbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/auth"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

const (
	defaultTimeout             = 10 * time.Second
	errorBodyReadLimit   int64 = 4096
	ordersPath                 = "/api/v1/orders"
	orderChangesPath           = "/api/v1/orders/changes"
	headerAuthorization        = "Authorization"
)

var errBaseURLRequired = errors.New("order backend base url is required")

// TokenSource returns the bearer token attached to each request.
type TokenSource func(ctx context.Context) (string, error)

// ServiceToken mints a short-lived super-admin token per request.
func ServiceToken(cfg config.JWTConfig, userID uuid.UUID) TokenSource {
	return func(context.Context) (string, error) {
		return auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
			UserID: userID,
			Role:   enums.RoleSuperAdmin,
		})
	}
}

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Client wraps the order backend routes used by workers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a client for the backend rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse order backend url: %w", err)
	}
	client := &Client{
		baseURL:    trimmed,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ListParams narrows a list request.
type ListParams struct {
	View          enums.OrderView
	SinceRevision int64
	Limit         int
	Cursor        string
}

// Page is one page of orders as returned by the list route.
type Page struct {
	Orders       []models.Order `json:"orders"`
	NextCursor   string         `json:"next_cursor,omitempty"`
	HeadRevision int64          `json:"head_revision"`
}

// ListOrders lists orders in the token holder's view.
func (c *Client) ListOrders(ctx context.Context, params ListParams) (*Page, error) {
	return c.list(ctx, nil, params)
}

// ListOrdersByOwner lists orders claimed by ownerID.
func (c *Client) ListOrdersByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) (*Page, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required").
			WithDetails(map[string]string{"ownerId": "is required"})
	}
	return c.list(ctx, &ownerID, params)
}

func (c *Client) list(ctx context.Context, ownerID *uuid.UUID, params ListParams) (*Page, error) {
	query := url.Values{}
	if params.View != "" {
		query.Set("view", params.View.String())
	}
	if ownerID != nil {
		query.Set("ownerId", ownerID.String())
	}
	if params.SinceRevision > 0 {
		query.Set("sinceRevision", strconv.FormatInt(params.SinceRevision, 10))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
	}
	var page Page
	if err := c.do(ctx, http.MethodGet, ordersPath, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ChangesSince returns orders whose revision is above revision, oldest first.
func (c *Client) ChangesSince(ctx context.Context, revision int64, limit int) (*types.OrderChanges, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatInt(revision, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var changes types.OrderChanges
	if err := c.do(ctx, http.MethodGet, orderChangesPath, query, nil, &changes); err != nil {
		return nil, err
	}
	return &changes, nil
}

// SetStatus moves an order to status.
func (c *Client) SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	body := map[string]string{"status": status.String()}
	var order models.Order
	if err := c.do(ctx, http.MethodPut, ordersPath+"/"+orderID.String()+"/status", nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Assign hands an order to fulfillerID.
func (c *Client) Assign(ctx context.Context, orderID, fulfillerID uuid.UUID) (*models.Order, error) {
	body := map[string]string{"fulfillerId": fulfillerID.String()}
	var order models.Order
	if err := c.do(ctx, http.MethodPost, ordersPath+"/"+orderID.String()+"/assign", nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "order backend client not configured")
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order backend request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build order backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order backend token")
		}
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	var envelope types.Envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order backend response")
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order backend payload")
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(raw))
	var details map[string]string
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		details = envelope.Error.Details
	}

	code := codeForStatus(resp.StatusCode)
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, message)
	typed := pkgerrors.Wrap(code, cause, message)
	if code == pkgerrors.CodeValidation && len(details) > 0 {
		typed = typed.WithDetails(details)
	}
	return typed
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		return pkgerrors.CodeDependency
	}
}
