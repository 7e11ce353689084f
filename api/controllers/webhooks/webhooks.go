package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/shipdesk/shipdesk-backend/api/responses"
	"github.com/shipdesk/shipdesk-backend/api/validators"
	internalwebhooks "github.com/shipdesk/shipdesk-backend/internal/webhooks"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/security"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

const maxWebhookBytes = 1 << 20

// Wix handles Wix order-created events for the owner in the URL. The
// registration challenge is echoed before any signature check.
func Wix(svc internalwebhooks.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := readBody(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var probe struct {
			Challenge string `json:"challenge"`
		}
		if json.Unmarshal(payload, &probe) == nil && probe.Challenge != "" {
			writeJSON(w, map[string]string{"challenge": probe.Challenge})
			return
		}

		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "wix webhook signing is not configured"))
			return
		}
		if !security.VerifyHMACHex(secret, payload, r.Header.Get("X-Wix-Signature")) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid wix signature"))
			return
		}

		eventID := strings.TrimSpace(r.Header.Get("X-Wix-Event-Id"))
		if eventID == "" {
			if body, err := types.ParseJSONMap(string(payload)); err == nil {
				eventID = body.String("eventId", "metadata.eventId", "id")
			}
		}
		handle(w, r, svc, logg, internalwebhooks.Event{Platform: enums.PlatformWix, ID: eventID, Body: payload})
	}
}

// Shopify handles Shopify orders/create events for the owner in the URL.
func Shopify(svc internalwebhooks.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "shopify webhook signing is not configured"))
			return
		}

		payload, err := readBody(w, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !security.VerifyHMACBase64(secret, payload, r.Header.Get("X-Shopify-Hmac-Sha256")) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid shopify signature"))
			return
		}

		event := internalwebhooks.Event{
			Platform: enums.PlatformShopify,
			ID:       strings.TrimSpace(r.Header.Get("X-Shopify-Webhook-Id")),
			Body:     payload,
		}
		handle(w, r, svc, logg, event)
	}
}

func handle(w http.ResponseWriter, r *http.Request, svc internalwebhooks.Service, logg *logger.Logger, event internalwebhooks.Event) {
	ctx := r.Context()
	ownerID, err := validators.ParseURLUUID(r, "ownerId")
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"platform": event.Platform.String(),
			"event_id": event.ID,
		})
		ctx = logg.WithUserID(ctx, ownerID.String())
	}

	outcome, err := svc.HandleOrder(ctx, ownerID, event)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, outcome)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
