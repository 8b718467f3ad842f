package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"bookingdesk-backend/billing"
	"bookingdesk-backend/controllers"
	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/notify"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/services"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "test-secret"
	whsec      = "whsec_test"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type sentEmail struct {
	to, subject, body string
}

type captureEmail struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (e *captureEmail) SendEmail(_ context.Context, to, subject, body string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sentEmail{to, subject, body})
	return nil
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]+)`)

// lastToken returns the link token of the newest email sent to addr.
func (e *captureEmail) lastToken(t *testing.T, addr string) string {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.sent) - 1; i >= 0; i-- {
		if e.sent[i].to != addr {
			continue
		}
		if m := tokenPattern.FindStringSubmatch(e.sent[i].body); m != nil {
			return m[1]
		}
	}
	t.Fatalf("no email with a token sent to %s", addr)
	return ""
}

type fakeStripe struct {
	checkouts []billing.CheckoutRequest
	canceled  []string
	err       error
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.checkouts = append(f.checkouts, req)
	return &billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (f *fakeStripe) CancelSubscription(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.canceled = append(f.canceled, id)
	return nil
}

type testEnv struct {
	router *gin.Engine
	store  *repository.Store
	email  *captureEmail
	stripe *fakeStripe
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, middleware.NewLocalRateLimiter(1000))
}

func newTestEnvWithLimiter(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()
	return newTestEnvBehindProxies(t, limiter, nil)
}

func newTestEnvBehindProxies(t *testing.T, limiter middleware.Limiter, trustedProxies []string) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	plans := models.DefaultPlans()
	for i := range plans {
		if plans[i].Code != models.PlanFree {
			plans[i].StripePriceID = "price_" + plans[i].Code
		}
	}
	require.NoError(t, store.Billing.SeedPlans(context.Background(), plans))

	logger := zap.NewNop()
	email := &captureEmail{}
	stripe := &fakeStripe{}
	deps := &controllers.Deps{
		Store:        store,
		Entitlements: services.NewEntitlements(store),
		Notifier:     notify.New(email, nil, store.Notifications, logger, "http://app.test"),
		Billing:      stripe,
		Webhooks:     billing.NewWebhookProcessor(store.Billing, whsec, 5*time.Minute, logger),
		Logger:       logger,
		JWTSecret:    testSecret,
		JWTExpiry:    time.Hour,
		ReadyChecks: map[string]func(context.Context) error{
			"database": func(context.Context) error { return nil },
		},
	}
	return &testEnv{
		router: SetupRouter(deps, limiter, []string{"http://localhost:3000"}, trustedProxies, logger),
		store:  store,
		email:  email,
		stripe: stripe,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// register creates a user and returns its token and id.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "password123", "name": "User " + email,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), user["id"].(string)
}

// workspace creates a workspace owned by token and returns its id.
func (e *testEnv) workspace(t *testing.T, token, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/workspaces", token, map[string]string{"name": name, "email": "desk@" + models.Slugify(name) + ".test"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["workspace"].(map[string]interface{})["id"].(string)
}

func (e *testEnv) create(t *testing.T, token, path string, body interface{}) string {
	t.Helper()
	w := e.do(t, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func (e *testEnv) notificationLogs() []models.NotificationLog {
	return e.store.Notifications.(interface{ Logs() []models.NotificationLog }).Logs()
}
