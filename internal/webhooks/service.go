package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/dispatch"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// Event is one verified platform delivery.
type Event struct {
	Platform enums.Platform
	// ID is the platform's delivery id. Empty when the platform sent none.
	ID   string
	Body []byte
}

// Outcome describes what a delivery did.
type Outcome struct {
	OrderID        uuid.UUID `json:"order_id,omitempty"`
	Created        bool      `json:"created"`
	Duplicate      bool      `json:"duplicate"`
	Dispatched     bool      `json:"dispatched"`
	ShipmentNumber string    `json:"shipment_number,omitempty"`
}

// Service ingests platform order events.
type Service interface {
	HandleOrder(ctx context.Context, ownerID uuid.UUID, event Event) (*Outcome, error)
}

type ingester interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, input orders.OrderInput) (*models.Order, bool, error)
}

type accountLoader interface {
	Account(ctx context.Context, ownerID uuid.UUID) (*carrier.Account, error)
}

type dispatcher interface {
	DispatchToCarrier(ctx context.Context, ownerID, orderID uuid.UUID) (*dispatch.ShipmentRef, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, platform, eventID string) (bool, error)
	Release(ctx context.Context, platform, eventID string) error
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	Orders     ingester
	Accounts   accountLoader
	Dispatcher dispatcher
	// Guard drops repeated deliveries before they reach the store. Optional;
	// the store still rejects duplicate external ids.
	Guard  eventGuard
	Logger *logger.Logger
}

type service struct {
	orders     ingester
	accounts   accountLoader
	dispatcher dispatcher
	guard      eventGuard
	logg       *logger.Logger
}

// NewService constructs the webhook service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("carrier account loader required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:     params.Orders,
		accounts:   params.Accounts,
		dispatcher: params.Dispatcher,
		guard:      params.Guard,
		logg:       params.Logger,
	}, nil
}

// HandleOrder saves the event's order as pending and, when the owner enabled
// auto dispatch, sends it to the carrier. A failed dispatch is logged and
// leaves the saved order in place.
func (s *service) HandleOrder(ctx context.Context, ownerID uuid.UUID, event Event) (*Outcome, error) {
	normalize, ok := normalizers[event.Platform]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported platform %q", event.Platform))
	}
	body, err := decodeBody(event.Body)
	if err != nil {
		return nil, err
	}
	input, err := normalize(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	platform := event.Platform.String()
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"platform": platform,
		"event_id": event.ID,
		"user_id":  ownerID.String(),
	})

	guarded := s.guard != nil && event.ID != ""
	if guarded {
		seen, err := s.guard.CheckAndMark(ctx, platform, event.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook event")
		}
		if seen {
			s.logg.Info(logCtx, "webhook.duplicate_event")
			return &Outcome{Duplicate: true}, nil
		}
	}

	order, created, err := s.orders.Ingest(ctx, ownerID, input)
	if err != nil {
		if guarded {
			if relErr := s.guard.Release(ctx, platform, event.ID); relErr != nil {
				s.logg.Error(logCtx, "webhook.release_event_failed", relErr)
			}
		}
		return nil, err
	}
	out := &Outcome{OrderID: order.ID, Created: created, Duplicate: !created}
	logCtx = s.logg.WithOrderID(logCtx, order.ID.String())
	if !created {
		s.logg.Info(logCtx, "webhook.duplicate_order")
		return out, nil
	}
	s.logg.Info(logCtx, "webhook.order_created")

	s.autoDispatch(logCtx, ownerID, order.ID, out)
	return out, nil
}

func (s *service) autoDispatch(ctx context.Context, ownerID, orderID uuid.UUID, out *Outcome) {
	account, err := s.accounts.Account(ctx, ownerID)
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeConfiguration) {
			s.logg.Error(ctx, "webhook.account_lookup_failed", err)
		}
		return
	}
	if !account.AutoDispatch {
		return
	}
	ref, err := s.dispatcher.DispatchToCarrier(ctx, ownerID, orderID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", pkgerrors.MessageOf(err)), "webhook.auto_dispatch_failed")
		return
	}
	out.Dispatched = true
	out.ShipmentNumber = ref.ShipmentNumber
}

// decodeBody keeps numbers as json.Number so large platform ids survive.
func decodeBody(raw []byte) (types.JSONMap, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var body types.JSONMap
	if err := decoder.Decode(&body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook payload")
	}
	return body, nil
}
