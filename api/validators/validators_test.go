package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

type bulkBody struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,dive,uuid"`
	Mode     string   `json:"mode" validate:"omitempty,oneof=dispatch delete"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_ids":["3f0e2f3a-8f2c-4e0c-9b8e-2a3c4d5e6f70"]}`))
	var body bulkBody
	require.NoError(t, DecodeJSONBody(req, &body))
	require.Len(t, body.OrderIDs, 1)
}

func TestDecodeJSONBodyRejectsUnknownAndInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_ids":[],"extra":1}`))
	var body bulkBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_ids":[],"mode":"x"}`))
	err = DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details := typed.Details().(map[string]string)
	require.Equal(t, "must be at least 1", details["order_ids"])
	require.Contains(t, details["mode"], "must be one of")
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 10, v)

	req = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	require.Error(t, err)
}

func TestParseURLUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParseURLUUID(req, "orderId")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeOptional(t *testing.T) {
	blank := "   "
	require.Nil(t, SanitizeOptional(&blank, 10))
	long := " abcdefghijkl "
	require.Equal(t, "abcdefghij", *SanitizeOptional(&long, 10))
}
