package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/utils"
)

type MockGranter struct {
	mock.Mock
}

func (m *MockGranter) GrantTier(ctx context.Context, req ledger.GrantRequest) (*ledger.GrantResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GrantResult), args.Error(1)
}

type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) ClaimPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	args := m.Called(ctx, payment)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) ReleasePayment(ctx context.Context, yookassaID string) error {
	args := m.Called(ctx, yookassaID)
	return args.Error(0)
}

const succeededBody = `{
	"type": "notification",
	"event": "payment.succeeded",
	"object": {
		"id": "pay-1",
		"status": "succeeded",
		"paid": true,
		"amount": {"value": "990.00", "currency": "RUB"},
		"metadata": {"telegram_id": "42", "tier": "Pro", "duration_days": "30"}
	}
}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, granter Granter, store PaymentStore) *gin.Engine {
	t.Helper()
	allowed, err := utils.ParseCIDRs([]string{"185.71.76.0/27"})
	require.NoError(t, err)
	return NewRouter(NewHandler(granter, store, allowed))
}

func postWebhook(router http.Handler, remoteAddr, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/yookassa", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func isProGrant(req ledger.GrantRequest) bool {
	return req.UserID == 42 &&
		req.Tier == models.TierPro &&
		req.Source == SourceYooKassa &&
		req.DurationDays != nil && *req.DurationDays == 30 &&
		req.Expiry == ledger.ClearExpiry
}

func TestHandleWebhook_GrantsTier(t *testing.T) {
	granter := new(MockGranter)
	store := new(MockPaymentStore)
	store.On("ClaimPayment", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
		return p.YooKassaID == "pay-1" && p.UserID == 42 && p.Amount.String() == "990" && p.Currency == "RUB"
	})).Return(true, nil)
	granter.On("GrantTier", mock.Anything, mock.MatchedBy(isProGrant)).
		Return(&ledger.GrantResult{User: &models.User{UserID: 42, Tier: models.TierPro}, Notified: true}, nil)

	rec := postWebhook(newTestRouter(t, granter, store), "185.71.76.1:4433", succeededBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	granter.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestHandleWebhook_DuplicateIsAcknowledged(t *testing.T) {
	granter := new(MockGranter)
	store := new(MockPaymentStore)
	store.On("ClaimPayment", mock.Anything, mock.Anything).Return(false, nil)

	rec := postWebhook(newTestRouter(t, granter, store), "185.71.76.1:4433", succeededBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	granter.AssertNotCalled(t, "GrantTier", mock.Anything, mock.Anything)
}

func TestHandleWebhook_RejectsUnknownAddress(t *testing.T) {
	granter := new(MockGranter)
	store := new(MockPaymentStore)

	rec := postWebhook(newTestRouter(t, granter, store), "10.0.0.1:4433", succeededBody)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	store.AssertNotCalled(t, "ClaimPayment", mock.Anything, mock.Anything)
}

func TestHandleWebhook_BadRequests(t *testing.T) {
	granter := new(MockGranter)
	store := new(MockPaymentStore)
	router := newTestRouter(t, granter, store)

	rec := postWebhook(router, "185.71.76.1:4433", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(router, "185.71.76.1:4433", `{"event":"payment.canceled","object":{"id":"x"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// malformed metadata is acknowledged, redelivery would not fix it
	bad := strings.Replace(succeededBody, `"tier": "Pro"`, `"tier": "Gold"`, 1)
	rec = postWebhook(router, "185.71.76.1:4433", bad)
	assert.Equal(t, http.StatusOK, rec.Code)

	store.AssertNotCalled(t, "ClaimPayment", mock.Anything, mock.Anything)
}

func TestHandleWebhook_StoreFailureReleasesClaim(t *testing.T) {
	granter := new(MockGranter)
	store := new(MockPaymentStore)
	store.On("ClaimPayment", mock.Anything, mock.Anything).Return(true, nil)
	store.On("ReleasePayment", mock.Anything, "pay-1").Return(nil)
	granter.On("GrantTier", mock.Anything, mock.Anything).Return(nil, apperr.Store("grant tier", errors.New("timeout")))

	rec := postWebhook(newTestRouter(t, granter, store), "185.71.76.1:4433", succeededBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	store.AssertExpectations(t)
}

func TestHandleWebhook_UnknownUserIsAcknowledged(t *testing.T) {
	granter := new(MockGranter)
	store := new(MockPaymentStore)
	store.On("ClaimPayment", mock.Anything, mock.Anything).Return(false, apperr.NotFound("user 42 is not registered"))

	rec := postWebhook(newTestRouter(t, granter, store), "185.71.76.1:4433", succeededBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	granter.AssertNotCalled(t, "GrantTier", mock.Anything, mock.Anything)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, new(MockGranter), new(MockPaymentStore))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
