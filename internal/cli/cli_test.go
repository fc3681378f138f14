package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gemstore/internal/app"
	"gemstore/internal/config"
	"gemstore/internal/logging"
	"gemstore/internal/models"
	"gemstore/internal/repositories"
	"gemstore/internal/services"
	"gemstore/pkg/client"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, settings map[string]interface{}) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("DATABASE_DSN", "file:"+filepath.Join(t.TempDir(), "gemstore.db"))
	v.Set("UPLOAD_DIR", t.TempDir())
	for k, val := range settings {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

// run executes gemctl with args against cfg and returns stdout.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{LoadConfig: func() (*config.Config, error) { return cfg, nil }}
	cmd := newRootCommand(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, testConfig(t, nil), "seed", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestSeed(t *testing.T) {
	cfg := testConfig(t, nil)

	out, err := run(t, cfg, "seed")
	require.NoError(t, err)
	assert.Equal(t, "seeded 4 products\n", out)

	out, err = run(t, cfg, "seed", "--format", "json")
	require.NoError(t, err)
	var result map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 0, result["added"])
}

func TestReconcileAdmin(t *testing.T) {
	_, err := run(t, testConfig(t, nil), "reconcile-admin")
	assert.ErrorContains(t, err, "ADMIN_EMAIL")

	cfg := testConfig(t, map[string]interface{}{"ADMIN_EMAIL": "Owner@Gems.com", "ADMIN_PASSWORD": "ownerpass"})
	out, err := run(t, cfg, "reconcile-admin")
	require.NoError(t, err)
	assert.Equal(t, "owner@gems.com is the admin account\n", out)

	db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logging.Discard())
	require.NoError(t, err)
	user, err := repositories.NewGORMUserRepository(db).GetByEmail("owner@gems.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, "owner", user.Name)
}

func TestReconcileAdmin_PasswordMismatch(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{"ADMIN_EMAIL": "owner@gems.com", "ADMIN_PASSWORD": "ownerpass"})
	db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, repositories.AutoMigrate(db))
	users := repositories.NewGORMUserRepository(db)
	require.NoError(t, users.Create(&models.User{Name: "Mallory", Email: "owner@gems.com", PasswordHash: "not-a-bcrypt-hash"}))

	_, err = run(t, cfg, "reconcile-admin")
	assert.ErrorIs(t, err, services.ErrAdminCredentialMismatch)

	user, err := users.GetByEmail("owner@gems.com")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)
}

func TestPruneSessions(t *testing.T) {
	cfg := testConfig(t, nil)
	_, err := run(t, cfg, "seed")
	require.NoError(t, err)

	db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logging.Discard())
	require.NoError(t, err)
	user := &models.User{Name: "A", Email: "a@x.com", PasswordHash: "x"}
	require.NoError(t, repositories.NewGORMUserRepository(db).Create(user))
	sessions := repositories.NewGORMSessionRepository(db)
	now := time.Now()
	require.NoError(t, sessions.Create(&models.Session{Token: "old", UserID: user.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, sessions.Create(&models.Session{Token: "live", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	out, err := run(t, cfg, "prune-sessions")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 expired sessions\n", out)

	_, err = sessions.Get("live")
	assert.NoError(t, err)

	redisCfg := testConfig(t, map[string]interface{}{"SESSION_STORE": "redis"})
	_, err = run(t, redisCfg, "prune-sessions")
	assert.Error(t, err)
}

func TestEventsRequiresBroker(t *testing.T) {
	_, err := run(t, testConfig(t, nil), "events")
	assert.ErrorContains(t, err, "RABBITMQ_URL")
}

func TestRequestsListAndDecide(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{
		"DATABASE_DSN":    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		"ADMIN_EMAIL":     "owner@gems.com",
		"ADMIN_PASSWORD":  "ownerpass",
		"AUTH_RATE_LIMIT": 0,
	})
	server, err := app.New(cfg, logging.Discard())
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Fiber.Listener(ln)
	t.Cleanup(func() {
		server.Fiber.Shutdown()
		server.Close()
	})
	apiURL := "http://" + ln.Addr().String() + "/api"

	customer := client.New(apiURL, 5*time.Second)
	_, err = customer.Register("A", "a@x.com", "secret1")
	require.NoError(t, err)
	created, err := customer.CreateOrderRequest(1, 2, "for my mother")
	require.NoError(t, err)

	out, err := run(t, cfg, "requests", "list", "--api-url", apiURL, "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, "The Royal Emerald Necklace")

	id := fmt.Sprint(created.ID)
	out, err = run(t, cfg, "requests", "decide", id, "accepted", "-m", "Ready for pickup", "--api-url", apiURL)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("order request %s accepted: Ready for pickup\n", id), out)

	_, err = run(t, cfg, "requests", "decide", id, "declined", "--api-url", apiURL)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)

	_, err = run(t, cfg, "requests", "decide", id, "maybe", "--api-url", apiURL)
	assert.ErrorContains(t, err, "accepted or declined")

	_, err = run(t, cfg, "requests", "list", "--api-url", apiURL, "--email", "a@x.com", "--password", "secret1")
	assert.ErrorContains(t, err, "not an admin")

	out, err = run(t, cfg, "requests", "list", "--api-url", apiURL, "--format", "json")
	require.NoError(t, err)
	var listed []models.OrderRequestView
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, models.StatusAccepted, listed[0].Status)
	assert.True(t, strings.EqualFold(listed[0].UserEmail, "a@x.com"))
}
