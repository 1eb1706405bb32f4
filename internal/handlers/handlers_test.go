package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mmkdev/account-factory/internal/config"
	"github.com/mmkdev/account-factory/internal/dto"
	"github.com/mmkdev/account-factory/internal/handlers"
	"github.com/mmkdev/account-factory/internal/mailprovider"
	"github.com/mmkdev/account-factory/internal/models"
	"github.com/mmkdev/account-factory/internal/routes"
	"github.com/mmkdev/account-factory/internal/services"
	"github.com/mmkdev/account-factory/internal/store"
	"github.com/mmkdev/account-factory/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app          *fiber.App
	store        *store.MemoryStore
	provider     *mailprovider.Fake
	orchestrator *worker.Orchestrator
	cfg          *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		AdminToken: "admin-token",
		Worker: config.WorkerConfig{
			MaxRetries:        3,
			RetryDelay:        time.Millisecond,
			MailboxRetries:    3,
			RateLimitBackoff:  time.Millisecond,
			RateLimitCooldown: 100 * time.Millisecond,
			PacingSmall:       time.Millisecond,
			PacingMedium:      time.Millisecond,
			PacingLarge:       time.Millisecond,
		},
	}

	st := store.NewMemoryStore()
	provider := &mailprovider.Fake{}
	registry := mailprovider.NewRegistry(provider)
	guard := worker.NewRateGuard(cfg.Worker.RateLimitCooldown)
	register := func(_ context.Context, _, _, _, _ string) (bool, error) { return true, nil }
	orchestrator := worker.New(st, registry, register, guard, cfg.Worker, 50*time.Millisecond)

	accountService := services.NewAccountService(st, registry, orchestrator)
	exportService := services.NewExportService(st)
	authService := services.NewAuthService(cfg)

	app := fiber.New()
	routes.Setup(app, cfg,
		handlers.NewAccountHandler(accountService),
		handlers.NewInboxHandler(accountService),
		handlers.NewExportHandler(exportService),
		handlers.NewAuthHandler(authService),
		handlers.NewHealthHandler(nil),
	)

	return &testEnv{app: app, store: st, provider: provider, orchestrator: orchestrator, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, payload
}

func (e *testEnv) seedAccount(t *testing.T, account *models.Account) *models.Account {
	t.Helper()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Status == "" {
		account.Status = models.AccountStatusCreated
	}
	require.NoError(t, e.store.CreateAccount(context.Background(), account))
	return account
}

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func TestCreateBatchRejectsBadQuantity(t *testing.T) {
	env := newTestEnv(t)

	for _, quantity := range []int{0, -1, 101} {
		resp, payload := env.request(t, http.MethodPost, "/api/accounts/create",
			dto.CreateAccountsRequest{Quantity: quantity}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "quantity %d", quantity)

		body := decode[dto.ErrorResponse](t, payload)
		assert.True(t, body.Error)
	}

	// validation failures must not leave a job behind
	jobs, err := env.store.JobsByStatus(context.Background(), models.JobStatusProcessing)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCreateBatchRejectsBadSeparator(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodPost, "/api/accounts/create",
		dto.CreateAccountsRequest{Quantity: 1, UsernameSeparator: "!"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateBatchAndPollJob(t *testing.T) {
	env := newTestEnv(t)

	resp, payload := env.request(t, http.MethodPost, "/api/accounts/create",
		dto.CreateAccountsRequest{Quantity: 3, UsernamePrefix: "bot"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	created := decode[dto.CreateAccountsResponse](t, payload)
	require.NotEmpty(t, created.JobID)
	assert.Equal(t, models.JobStatusProcessing, created.Status)
	assert.Equal(t, "fake.mail", created.EmailProvider)

	env.orchestrator.Wait()

	resp, payload = env.request(t, http.MethodGet, "/api/accounts/job/"+created.JobID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[dto.JobStatusResponse](t, payload)
	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, 3, status.Completed)
	assert.Equal(t, 0, status.Failed)
	assert.InDelta(t, 100.0, status.ProgressPercentage, 0.01)

	require.Len(t, status.Accounts, 3)
	for i, account := range status.Accounts {
		assert.Equal(t, fmt.Sprintf("bot.%d", i+1), account.Username)
		assert.Len(t, account.Password, 12)
		assert.NotEmpty(t, account.Email)
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	env := newTestEnv(t)

	resp, payload := env.request(t, http.MethodGet, "/api/accounts/job/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[dto.ErrorResponse](t, payload)
	assert.True(t, body.Error)
}

func TestJobStatusIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	_, payload := env.request(t, http.MethodPost, "/api/accounts/create",
		dto.CreateAccountsRequest{Quantity: 2}, nil)
	created := decode[dto.CreateAccountsResponse](t, payload)
	env.orchestrator.Wait()

	_, first := env.request(t, http.MethodGet, "/api/accounts/job/"+created.JobID, nil, nil)
	_, second := env.request(t, http.MethodGet, "/api/accounts/job/"+created.JobID, nil, nil)
	assert.JSONEq(t, string(first), string(second))
}

func TestInboxSoftFailsOnProviderError(t *testing.T) {
	env := newTestEnv(t)
	env.provider.ListFn = func(mailprovider.Session) ([]mailprovider.MessageSummary, error) {
		return nil, mailprovider.ErrUnavailable
	}

	account := env.seedAccount(t, &models.Account{
		Username:         "bot.1",
		Email:            "box@fake.mail",
		EmailProvider:    "fake.mail",
		EmailSessionData: []byte(`{"token":"tok"}`),
	})

	resp, payload := env.request(t, http.MethodGet, "/api/accounts/"+account.ID.String()+"/inbox", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inbox := decode[dto.InboxResponse](t, payload)
	assert.NotEmpty(t, inbox.Error)
	assert.NotNil(t, inbox.Messages)
	assert.Empty(t, inbox.Messages)
}

func TestInboxWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	account := env.seedAccount(t, &models.Account{
		Username:      "bot.1",
		Email:         "fallback123456@fallback.mail",
		EmailProvider: "fake.mail",
	})

	resp, payload := env.request(t, http.MethodGet, "/api/accounts/"+account.ID.String()+"/inbox", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inbox := decode[dto.InboxResponse](t, payload)
	assert.Equal(t, "No session data available", inbox.Error)
	assert.Empty(t, inbox.Messages)
}

func TestInboxUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/accounts/"+uuid.NewString()+"/inbox", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessageFetch(t *testing.T) {
	env := newTestEnv(t)
	env.provider.GetFn = func(_ mailprovider.Session, messageID string) (*mailprovider.Message, error) {
		if messageID != "msg-1" {
			return nil, mailprovider.ErrMessageNotFound
		}
		return &mailprovider.Message{
			MessageSummary: mailprovider.MessageSummary{ID: "msg-1", Subject: "Welcome"},
			Text:           "hello",
		}, nil
	}

	account := env.seedAccount(t, &models.Account{
		Username:         "bot.1",
		Email:            "box@fake.mail",
		EmailProvider:    "fake.mail",
		EmailSessionData: []byte(`{"token":"tok"}`),
	})

	resp, payload := env.request(t, http.MethodGet, "/api/accounts/"+account.ID.String()+"/inbox/msg-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content := decode[dto.MessageContentResponse](t, payload)
	require.NotNil(t, content.Message)
	assert.Equal(t, "Welcome", content.Message.Subject)

	resp, _ = env.request(t, http.MethodGet, "/api/accounts/"+account.ID.String()+"/inbox/msg-404", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessageWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	account := env.seedAccount(t, &models.Account{
		Username: "bot.1",
		Email:    "fallback123456@fallback.mail",
	})

	resp, _ := env.request(t, http.MethodGet, "/api/accounts/"+account.ID.String()+"/inbox/msg-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, &models.Account{Username: "bot.1", Email: "box@fake.mail"})

	resp, payload := env.request(t, http.MethodPut, "/api/accounts/"+account.ID.String()+"/status",
		dto.UpdateStatusRequest{Status: models.AccountStatusVerified}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Account](t, payload)
	assert.Equal(t, models.AccountStatusVerified, updated.Status)

	// verified is terminal
	resp, _ = env.request(t, http.MethodPut, "/api/accounts/"+account.ID.String()+"/status",
		dto.UpdateStatusRequest{Status: models.AccountStatusFailed}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVerifyLogin(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, &models.Account{
		Username: "bot.1",
		Email:    "box@fake.mail",
		Phone:    "0351234567",
		Password: "Secret!12345",
	})

	resp, payload := env.request(t, http.MethodPost, "/api/accounts/"+account.ID.String()+"/verify-login", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	verify := decode[dto.VerifyLoginResponse](t, payload)
	assert.Contains(t, verify.LoginURL, "sso.garena.com")
	assert.Equal(t, "bot.1", verify.Account.Username)
	assert.Equal(t, "Secret!12345", verify.Account.Password)

	got, err := env.store.GetAccount(context.Background(), account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusPendingVerification, got.Status)
}

func TestRegenerateRefusedDuringCooldown(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, &models.Account{
		Username: "bot.1", Email: "box@fake.mail", EmailProvider: "fake.mail",
	})

	env.orchestrator.Guard().MarkLimited()

	resp, _ := env.request(t, http.MethodPut, "/api/accounts/"+account.ID.String()+"/regenerate", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRegenerateReplacesCredentials(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, &models.Account{
		Username: "bot.1", Email: "old@fake.mail", EmailProvider: "fake.mail",
	})

	resp, payload := env.request(t, http.MethodPut, "/api/accounts/"+account.ID.String()+"/regenerate", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	regen := decode[dto.RegenerateResponse](t, payload)
	assert.Equal(t, "old@fake.mail", regen.OldEmail)
	assert.Equal(t, "box@fake.mail", regen.NewEmail)
	assert.NotEmpty(t, regen.NewUsername)

	got, err := env.store.GetAccount(context.Background(), account.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "box@fake.mail", got.Email)
	assert.Len(t, got.Password, 12)
	assert.NotEmpty(t, got.EmailSessionData)
}

func TestRateLimitStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, payload := env.request(t, http.MethodGet, "/api/rate-limit-status", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[dto.RateLimitStatusResponse](t, payload)
	assert.Equal(t, "ready", status.Status)
	assert.False(t, status.InCooldown)

	env.orchestrator.Guard().MarkLimited()

	resp, payload = env.request(t, http.MethodGet, "/api/rate-limit-status", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status = decode[dto.RateLimitStatusResponse](t, payload)
	assert.Equal(t, "rate_limited", status.Status)
	assert.True(t, status.InCooldown)
	assert.Greater(t, status.RemainingSeconds, 0)
}

func TestLoginIssuesJWT(t *testing.T) {
	env := newTestEnv(t)

	resp, payload := env.request(t, http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Token: "admin-token"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := decode[dto.LoginResponse](t, payload)
	assert.NotEmpty(t, login.Token)
	assert.True(t, login.ExpiresAt.After(time.Now()))

	resp, _ = env.request(t, http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Token: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, &models.Account{Username: "bot.1", Email: "box@fake.mail"})

	resp, _ := env.request(t, http.MethodDelete, "/api/accounts/"+account.ID.String(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// still there
	_, err := env.store.GetAccount(context.Background(), account.ID.String())
	require.NoError(t, err)

	resp, _ = env.request(t, http.MethodDelete, "/api/accounts/"+account.ID.String(), nil,
		map[string]string{"X-Admin-Token": "admin-token"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = env.store.GetAccount(context.Background(), account.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteAcceptsLoginJWT(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, &models.Account{Username: "bot.1", Email: "box@fake.mail"})

	_, payload := env.request(t, http.MethodPost, "/api/auth/login",
		dto.LoginRequest{Token: "admin-token"}, nil)
	login := decode[dto.LoginResponse](t, payload)

	resp, _ := env.request(t, http.MethodDelete, "/api/accounts/"+account.ID.String(), nil,
		map[string]string{"Authorization": "Bearer " + login.Token})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteMultiple(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedAccount(t, &models.Account{Username: "bot.1", Email: "a@fake.mail"})
	b := env.seedAccount(t, &models.Account{Username: "bot.2", Email: "b@fake.mail"})
	keep := env.seedAccount(t, &models.Account{Username: "bot.3", Email: "c@fake.mail"})

	admin := map[string]string{"X-Admin-Token": "admin-token"}

	resp, payload := env.request(t, http.MethodPost, "/api/accounts/delete-multiple",
		[]string{a.ID.String(), b.ID.String()}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decode[dto.DeleteResponse](t, payload)
	assert.Equal(t, int64(2), deleted.DeletedCount)

	_, err := env.store.GetAccount(context.Background(), keep.ID.String())
	require.NoError(t, err)

	resp, _ = env.request(t, http.MethodPost, "/api/accounts/delete-multiple", []string{}, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := map[string]string{"X-Admin-Token": "admin-token"}

	// empty store: nothing to export
	resp, _ := env.request(t, http.MethodGet, "/api/accounts/export/txt", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.seedAccount(t, &models.Account{
		Username: "bot.1", Email: "box@fake.mail", Password: "Secret!12345",
	})

	resp, payload := env.request(t, http.MethodGet, "/api/accounts/export/txt", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ACCOUNTS_1.txt")
	assert.Contains(t, string(payload), "bot.1|Secret!12345|box@fake.mail|Tạo lúc:")

	resp, payload = env.request(t, http.MethodGet, "/api/accounts/export/csv", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(payload), "Username,Email,Password,Phone,Status,Provider,Created At")

	resp, payload = env.request(t, http.MethodGet, "/api/accounts/export/xlsx", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// xlsx is a zip container
	assert.Equal(t, []byte("PK"), payload[:2])

	// exports sit behind the admin gate
	resp, _ = env.request(t, http.MethodGet, "/api/accounts/export/txt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, &models.Account{Username: "bot.1", Email: "a@fake.mail"})
	env.seedAccount(t, &models.Account{Username: "bot.2", Email: "b@fake.mail"})

	resp, payload := env.request(t, http.MethodGet, "/api/accounts/", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accounts := decode[[]models.Account](t, payload)
	assert.Len(t, accounts, 2)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, payload := env.request(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, payload)
	assert.Equal(t, true, body["ok"])
}
