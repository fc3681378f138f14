// Package client is a small HTTP client for the gemstore API. It keeps the
// session credential returned by Register and Login and sends it on every
// later call.
package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"gemstore/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionHeader carries the session credential for non-browser clients.
const SessionHeader = "X-Session-Id"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s (%s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Client talks to one gemstore server.
type Client struct {
	baseURL string
	timeout time.Duration

	mu      sync.RWMutex
	session string
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, timeout: timeout}
}

// Session returns the current session credential, empty when signed out.
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession restores a credential saved from an earlier run.
func (c *Client) SetSession(credential string) {
	c.mu.Lock()
	c.session = credential
	c.mu.Unlock()
}

func (c *Client) do(method, path string, body, out interface{}) error {
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if credential := c.Session(); credential != "" {
		req.Header.Set(SessionHeader, credential)
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(c.timeout)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("failed to prepare %s %s: %w", method, path, err)
	}

	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)
	agent.SetResponse(resp)

	// Bytes releases the agent.
	code, data, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errs[0])
	}
	if credential := resp.Header.Peek(SessionHeader); len(credential) > 0 {
		c.SetSession(string(credential))
	}

	if code >= fiber.StatusBadRequest {
		apiErr := &APIError{Status: code, Message: string(data)}
		var payload struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Field = payload.Field
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Register creates an account and signs it in.
func (c *Client) Register(name, email, password string) (*models.UserView, error) {
	var user models.UserView
	body := fiber.Map{"name": name, "email": email, "password": password}
	if err := c.do(fiber.MethodPost, "/auth/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login signs in and keeps the returned session credential.
func (c *Client) Login(email, password string) (*models.UserView, error) {
	var user models.UserView
	body := fiber.Map{"email": email, "password": password}
	if err := c.do(fiber.MethodPost, "/auth/login", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the server session and forgets the local credential.
func (c *Client) Logout() error {
	err := c.do(fiber.MethodPost, "/auth/logout", nil, nil)
	c.SetSession("")
	return err
}

// Me returns the signed-in user.
func (c *Client) Me() (*models.UserView, error) {
	var user models.UserView
	if err := c.do(fiber.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProductQuery filters ListProducts. Zero values mean no filter.
type ProductQuery struct {
	Category string
	Featured *bool
	Query    string
}

// ListProducts returns the catalog filtered by query.
func (c *Client) ListProducts(query ProductQuery) ([]models.Product, error) {
	params := url.Values{}
	if query.Category != "" {
		params.Set("category", query.Category)
	}
	if query.Featured != nil {
		params.Set("featured", strconv.FormatBool(*query.Featured))
	}
	if query.Query != "" {
		params.Set("q", query.Query)
	}
	path := "/products"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var products []models.Product
	if err := c.do(fiber.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product by id.
func (c *Client) GetProduct(id uint) (*models.Product, error) {
	var product models.Product
	if err := c.do(fiber.MethodGet, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateOrderRequest asks for quantity units of a product. It satisfies
// cart.Submitter.
func (c *Client) CreateOrderRequest(productID uint, quantity int, message string) (*models.OrderRequest, error) {
	var request models.OrderRequest
	body := fiber.Map{"productId": productID, "quantity": quantity, "message": message}
	if err := c.do(fiber.MethodPost, "/order-requests", body, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListMyOrderRequests returns the signed-in user's requests, newest first.
func (c *Client) ListMyOrderRequests() ([]models.OrderRequest, error) {
	var requests []models.OrderRequest
	if err := c.do(fiber.MethodGet, "/order-requests", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListAllOrderRequests requires an admin session.
func (c *Client) ListAllOrderRequests() ([]models.OrderRequestView, error) {
	var requests []models.OrderRequestView
	if err := c.do(fiber.MethodGet, "/admin/order-requests", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// DecideOrderRequest requires an admin session. An empty adminMessage lets
// the server pick its default.
func (c *Client) DecideOrderRequest(id uint, status models.OrderRequestStatus, adminMessage string) (*models.OrderRequest, error) {
	body := fiber.Map{"status": status}
	if adminMessage != "" {
		body["adminMessage"] = adminMessage
	}
	var request models.OrderRequest
	if err := c.do(fiber.MethodPost, fmt.Sprintf("/admin/order-requests/%d/decide", id), body, &request); err != nil {
		return nil, err
	}
	return &request, nil
}
