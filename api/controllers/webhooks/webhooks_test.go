package webhooks

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalwebhooks "github.com/shipdesk/shipdesk-backend/internal/webhooks"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/security"
)

const testSecret = "whsec"

type stubService struct {
	owner  uuid.UUID
	events []internalwebhooks.Event
}

func (s *stubService) HandleOrder(_ context.Context, ownerID uuid.UUID, event internalwebhooks.Event) (*internalwebhooks.Outcome, error) {
	s.owner = ownerID
	s.events = append(s.events, event)
	return &internalwebhooks.Outcome{OrderID: uuid.New(), Created: true}, nil
}

func router(svc internalwebhooks.Service, secret string) http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/wix/{ownerId}", Wix(svc, secret, nil))
	r.Post("/webhooks/shopify/{ownerId}", Shopify(svc, secret, nil))
	return r
}

func TestWixEchoesChallengeWithoutSignature(t *testing.T) {
	svc := &stubService{}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/wix/"+uuid.NewString(), strings.NewReader(`{"challenge":"abc123"}`))
	rec := httptest.NewRecorder()
	router(svc, "").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"challenge":"abc123"}`, rec.Body.String())
	assert.Empty(t, svc.events)
}

func TestWixVerifiesSignature(t *testing.T) {
	owner := uuid.New()
	body := `{"eventId":"evt-1","data":{"order":{"number":"1001"}}}`

	t.Run("valid", func(t *testing.T) {
		svc := &stubService{}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/wix/"+owner.String(), strings.NewReader(body))
		req.Header.Set("X-Wix-Signature", hex.EncodeToString(security.SignHMACSHA256(testSecret, []byte(body))))
		rec := httptest.NewRecorder()
		router(svc, testSecret).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, svc.events, 1)
		assert.Equal(t, owner, svc.owner)
		assert.Equal(t, enums.PlatformWix, svc.events[0].Platform)
		assert.Equal(t, "evt-1", svc.events[0].ID)
		assert.Equal(t, body, string(svc.events[0].Body))
	})

	t.Run("tampered", func(t *testing.T) {
		svc := &stubService{}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/wix/"+owner.String(), strings.NewReader(body))
		req.Header.Set("X-Wix-Signature", hex.EncodeToString(security.SignHMACSHA256("other", []byte(body))))
		rec := httptest.NewRecorder()
		router(svc, testSecret).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.events)
	})

	t.Run("unconfigured secret", func(t *testing.T) {
		svc := &stubService{}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/wix/"+owner.String(), strings.NewReader(body))
		rec := httptest.NewRecorder()
		router(svc, "").ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.events)
	})
}

func TestShopifyUsesWebhookIDHeader(t *testing.T) {
	svc := &stubService{}
	owner := uuid.New()
	body := `{"id":450789469,"name":"#1001"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/"+owner.String(), strings.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", base64.StdEncoding.EncodeToString(security.SignHMACSHA256(testSecret, []byte(body))))
	req.Header.Set("X-Shopify-Webhook-Id", "b54557e4")
	rec := httptest.NewRecorder()
	router(svc, testSecret).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.events, 1)
	assert.Equal(t, enums.PlatformShopify, svc.events[0].Platform)
	assert.Equal(t, "b54557e4", svc.events[0].ID)

	var payload struct {
		Data internalwebhooks.Outcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Data.Created)
}

func TestShopifyRejectsBadOwnerAndSignature(t *testing.T) {
	body := `{"id":1}`
	sig := base64.StdEncoding.EncodeToString(security.SignHMACSHA256(testSecret, []byte(body)))

	svc := &stubService{}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/not-a-uuid", strings.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", sig)
	rec := httptest.NewRecorder()
	router(svc, testSecret).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhooks/shopify/"+uuid.NewString(), strings.NewReader(body))
	req.Header.Set("X-Shopify-Hmac-Sha256", "bm9wZQ==")
	rec = httptest.NewRecorder()
	router(svc, testSecret).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.events)
}
