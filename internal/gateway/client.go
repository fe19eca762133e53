// Package gateway implements the authenticated client for the remote
// commerce API and the classification of its failure responses. All cart and
// wishlist mutations issued by the engines pass through here; the engines
// themselves never see an HTTP status code.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/velora/storefront/internal/domain"
	apperrors "github.com/velora/storefront/pkg/errors"
	"github.com/velora/storefront/pkg/httpclient"
	"github.com/velora/storefront/pkg/logger"
)

// TokenProvider supplies the current session credential. An empty token means
// the request is issued unauthenticated.
type TokenProvider interface {
	Token() string
}

// doer abstracts the transport so the client works with or without the
// circuit breaker wrapper.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the remote commerce API.
type Client struct {
	baseURL string
	http    doer
	tokens  TokenProvider
	logger  *slog.Logger
}

// NewClient creates a commerce API client. The transport is expected to be a
// circuit-breaker-wrapped httpclient with a zero retry budget: engine
// operations are never retried automatically.
func NewClient(baseURL string, transport *httpclient.CircuitBreakerClient, tokens TokenProvider, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    transport,
		tokens:  tokens,
		logger:  log,
	}
}

// --- Wire payloads ---

type cartLinePayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type wishlistEntryPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
}

type addCartResponse struct {
	Cart cartLinePayload `json:"cart"`
}

type addWishlistResponse struct {
	Wishlist wishlistEntryPayload `json:"wishlist"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Result struct {
		Token  string `json:"token"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Avatar string `json:"avatar"`
	} `json:"result"`
}

// --- Session ---

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "login", loginRequest{Email: email, Password: password})
	if err != nil {
		return domain.Session{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Session{}, c.classifyResponse(opCreate, resp, "session", "login failed")
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return domain.Session{}, fmt.Errorf("decode login response: %w", err)
	}

	return domain.Session{
		Token: lr.Result.Token,
		Profile: domain.Profile{
			Name:   lr.Result.Name,
			Email:  lr.Result.Email,
			Avatar: lr.Result.Avatar,
		},
	}, nil
}

// Logout tells the API to invalidate the credential. The token is passed
// explicitly because local session teardown never waits for this call: by the
// time it runs, the session store has already been cleared.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.doWithToken(ctx, http.MethodPost, "logout", nil, token)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyResponse(opCreate, resp, "session", "logout failed")
	}
	return nil
}

// --- Cart ---

// ListCart fetches the full cart.
func (c *Client) ListCart(ctx context.Context) ([]domain.CartLine, error) {
	resp, err := c.do(ctx, http.MethodGet, "cart", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.classifyResponse(opFetch, resp, "cart", "cart fetch failed")
	}

	var payload []cartLinePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode cart list: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(payload))
	for _, p := range payload {
		lines = append(lines, domain.CartLine{LineID: p.ID, ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return lines, nil
}

// AddCartLine requests addition of a product with the given quantity and
// returns the server's authoritative line (quantity merge semantics included).
func (c *Client) AddCartLine(ctx context.Context, productID string, quantity int) (domain.CartLine, error) {
	body := map[string]any{"product_id": productID, "quantity": quantity}
	resp, err := c.do(ctx, http.MethodPost, "cart", body)
	if err != nil {
		return domain.CartLine{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.CartLine{}, c.classifyResponse(opCreate, resp, "cart line", "could not add to cart")
	}

	var ar addCartResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return domain.CartLine{}, fmt.Errorf("decode add cart response: %w", err)
	}

	return domain.CartLine{LineID: ar.Cart.ID, ProductID: ar.Cart.ProductID, Quantity: ar.Cart.Quantity}, nil
}

// UpdateCartLine sets the quantity of an existing line.
func (c *Client) UpdateCartLine(ctx context.Context, lineID string, quantity int) error {
	body := map[string]any{"quantity": quantity}
	resp, err := c.do(ctx, http.MethodPut, "cart/"+lineID, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyResponse(opUpdate, resp, "cart line", "update failed")
	}
	return nil
}

// DeleteCartLine removes a line from the cart.
func (c *Client) DeleteCartLine(ctx context.Context, lineID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "cart/"+lineID, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyResponse(opDelete, resp, "cart line", "could not remove from cart")
	}
	return nil
}

// --- Wishlist ---

// ListWishlist fetches the full wishlist.
func (c *Client) ListWishlist(ctx context.Context) ([]domain.WishlistEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, "wishlist", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.classifyResponse(opFetch, resp, "wishlist", "wishlist fetch failed")
	}

	var payload []wishlistEntryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode wishlist list: %w", err)
	}

	entries := make([]domain.WishlistEntry, 0, len(payload))
	for _, p := range payload {
		entries = append(entries, domain.WishlistEntry{EntryID: p.ID, ProductID: p.ProductID})
	}
	return entries, nil
}

// AddWishlistEntry requests addition of a product to the wishlist.
func (c *Client) AddWishlistEntry(ctx context.Context, productID string) (domain.WishlistEntry, error) {
	body := map[string]any{"product_id": productID}
	resp, err := c.do(ctx, http.MethodPost, "wishlist", body)
	if err != nil {
		return domain.WishlistEntry{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.WishlistEntry{}, c.classifyResponse(opCreate, resp, "wishlist entry", "could not add to wishlist")
	}

	var ar addWishlistResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return domain.WishlistEntry{}, fmt.Errorf("decode add wishlist response: %w", err)
	}

	return domain.WishlistEntry{EntryID: ar.Wishlist.ID, ProductID: ar.Wishlist.ProductID}, nil
}

// DeleteWishlistEntry removes an entry from the wishlist.
func (c *Client) DeleteWishlistEntry(ctx context.Context, entryID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "wishlist/"+entryID, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyResponse(opDelete, resp, "wishlist entry", "could not remove from wishlist")
	}
	return nil
}

// --- Internals ---

// do builds and issues one request with the current session credential.
// payload is JSON-encoded when non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	return c.doWithToken(ctx, method, path, payload, c.tokens.Token())
}

func (c *Client) doWithToken(ctx context.Context, method, path string, payload any, token string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		// Transport failures, breaker rejections and breaker-absorbed 5xx
		// all mean the same thing to the engines: the upstream is
		// unreachable and local state must be preserved.
		return nil, apperrors.Unavailable(fmt.Sprintf("%s %s: %v", method, path, err))
	}
	return resp, nil
}

// classifyResponse consumes the response body and maps the failure to the
// engine error taxonomy.
func (c *Client) classifyResponse(op operation, resp *http.Response, resource, fallback string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		body = nil
	}

	classified := classify(op, resp.StatusCode, body, resource, fallback)
	c.logger.Debug("commerce api request failed",
		slog.Int("status", resp.StatusCode),
		slog.String("resource", resource),
		slog.String("error", classified.Error()),
	)
	return classified
}
