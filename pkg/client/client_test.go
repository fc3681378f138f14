package client_test

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"gemstore/internal/app"
	"gemstore/internal/cart"
	"gemstore/internal/config"
	"gemstore/internal/logging"
	"gemstore/internal/models"
	"gemstore/pkg/client"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a full server on a loopback port and returns its API base
// URL.
func startServer(t *testing.T) string {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("DATABASE_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	v.Set("UPLOAD_DIR", t.TempDir())
	v.Set("ADMIN_EMAIL", "owner@gems.com")
	v.Set("ADMIN_PASSWORD", "ownerpass")
	v.Set("AUTH_RATE_LIMIT", 0)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	a, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go a.Fiber.Listener(ln)
	t.Cleanup(func() {
		a.Fiber.Shutdown()
		a.Close()
	})
	return "http://" + ln.Addr().String() + "/api"
}

func TestClientCustomerFlow(t *testing.T) {
	base := startServer(t)
	c := client.New(base, 5*time.Second)

	user, err := c.Register("A", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEmpty(t, c.Session())

	me, err := c.Me()
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	featured := true
	products, err := c.ListProducts(client.ProductQuery{Featured: &featured})
	require.NoError(t, err)
	assert.Len(t, products, 3)

	rings, err := c.ListProducts(client.ProductQuery{Query: "signet"})
	require.NoError(t, err)
	require.Len(t, rings, 1)

	request, err := c.CreateOrderRequest(rings[0].ID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, rings[0].Price, request.ProductPrice)

	mine, err := c.ListMyOrderRequests()
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, c.Logout())
	assert.Empty(t, c.Session())

	_, err = c.Me()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClientErrors(t *testing.T) {
	base := startServer(t)
	c := client.New(base, 5*time.Second)

	_, err := c.Register("A", "a@x.com", "123")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "password", apiErr.Field)

	_, err = c.Login("nobody@x.com", "secret1")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	_, err = c.GetProduct(999)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestCartCheckoutThroughClient(t *testing.T) {
	base := startServer(t)
	customer := client.New(base, 5*time.Second)
	_, err := customer.Register("A", "a@x.com", "secret1")
	require.NoError(t, err)

	products, err := customer.ListProducts(client.ProductQuery{})
	require.NoError(t, err)
	require.Len(t, products, 4)

	c := cart.New()
	c.Add(products[0], 1)
	c.Add(products[1], 2)
	c.Add(models.Product{ID: 999, Name: "Withdrawn piece", Price: 1}, 1)

	result := c.Checkout(customer, "")
	assert.Equal(t, 2, result.Succeeded())
	require.Len(t, result.Failed(), 1)
	var apiErr *client.APIError
	require.True(t, errors.As(result.Failed()[0].Err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	remaining := c.Lines()
	require.Len(t, remaining, 1)
	assert.Equal(t, uint(999), remaining[0].Product.ID)

	admin := client.New(base, 5*time.Second)
	_, err = admin.Login("owner@gems.com", "ownerpass")
	require.NoError(t, err)
	all, err := admin.ListAllOrderRequests()
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.Equal(t, cart.DefaultCheckoutMessage, r.CustomerMessage)
		assert.Equal(t, "a@x.com", r.UserEmail)
	}

	decided, err := admin.DecideOrderRequest(all[0].ID, models.StatusDeclined, "")
	require.NoError(t, err)
	assert.Equal(t, "Declined", decided.AdminMessage)

	_, err = admin.DecideOrderRequest(all[0].ID, models.StatusAccepted, "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	_, err = customer.DecideOrderRequest(all[1].ID, models.StatusAccepted, "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}
