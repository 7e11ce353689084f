package shipments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/db"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// Service exposes shipment history and carrier status refresh.
type Service interface {
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*ShipmentList, error)
	ListForOrder(ctx context.Context, ownerID, orderID uuid.UUID) ([]ShipmentDTO, error)
	Refresh(ctx context.Context, ownerID, shipmentID uuid.UUID) (*ShipmentDTO, error)
}

type statusGateway interface {
	ShipmentStatus(ctx context.Context, creds hfd.Credentials, shipmentNumber string) (*hfd.StatusResult, error)
	LabelURL(shipmentNumber string) string
}

type accountLoader interface {
	Account(ctx context.Context, ownerID uuid.UUID) (*carrier.Account, error)
}

// ServiceParams groups dependencies for the shipments service.
type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Accounts accountLoader
	Gateway  statusGateway
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	orders   orders.Repository
	accounts accountLoader
	gateway  statusGateway
	activity *orders.ActivityLog
	logg     *logger.Logger
}

// NewService constructs a shipments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("carrier account loader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("carrier gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		accounts: params.Accounts,
		gateway:  params.Gateway,
		activity: orders.NewActivityLog(params.Orders, params.Logger),
		logg:     params.Logger,
	}, nil
}

func storeError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shipment store request failed")
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*ShipmentList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ownerID, params)
	if err != nil {
		return nil, storeError(err)
	}
	page, next := pagination.Trim(rows, params.Limit, func(m models.Shipment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	out := &ShipmentList{Shipments: make([]ShipmentDTO, 0, len(page)), NextCursor: next}
	for i := range page {
		out.Shipments = append(out.Shipments, s.toDTO(&page[i]))
	}
	return out, nil
}

func (s *service) ListForOrder(ctx context.Context, ownerID, orderID uuid.UUID) ([]ShipmentDTO, error) {
	rows, err := s.repo.ListByOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]ShipmentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, s.toDTO(&rows[i]))
	}
	return out, nil
}

// Refresh asks the carrier for the shipment's current status. A shipment
// reported delivered moves its shipped order to delivered.
func (s *service) Refresh(ctx context.Context, ownerID, shipmentID uuid.UUID) (*ShipmentDTO, error) {
	shipment, err := s.repo.Get(ctx, ownerID, shipmentID)
	if err != nil {
		return nil, storeError(err)
	}
	// Delivered and failed are final; the carrier is not asked again.
	if shipment.Status.IsTerminal() {
		dto := s.toDTO(shipment)
		return &dto, nil
	}
	account, err := s.accounts.Account(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	result, err := s.gateway.ShipmentStatus(ctx, account.Credentials, shipment.HFDShipmentNumber)
	if err != nil {
		return nil, err
	}

	next := mapCarrierStatus(result.Status, shipment.Status)
	if next == shipment.Status {
		dto := s.toDTO(shipment)
		return &dto, nil
	}

	data := types.JSONMap{}
	for k, v := range shipment.ShipmentData {
		data[k] = v
	}
	data["last_status"] = map[string]any{
		"status":      result.Status,
		"description": result.Description,
	}
	if err := s.repo.UpdateStatus(ctx, ownerID, shipment.ID, next, data); err != nil {
		return nil, storeError(err)
	}
	s.activity.Record(ctx, ownerID, shipment.OrderID, enums.ActivityShipmentStatusUpdated, types.JSONMap{
		"shipment_id":         shipment.ID.String(),
		"hfd_shipment_number": shipment.HFDShipmentNumber,
		"previous_status":     shipment.Status.String(),
		"new_status":          next.String(),
	})

	if next == enums.ShipmentStatusDelivered {
		s.markOrderDelivered(ctx, ownerID, shipment.OrderID)
	}

	shipment.Status = next
	shipment.ShipmentData = data
	dto := s.toDTO(shipment)
	return &dto, nil
}

func (s *service) markOrderDelivered(ctx context.Context, ownerID, orderID uuid.UUID) {
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	order, err := s.orders.Get(ctx, ownerID, orderID)
	if err != nil {
		if !db.IsNotFound(err) {
			s.logg.Error(logCtx, "shipment.order_lookup_failed", err)
		}
		return
	}
	if order.Status != enums.OrderStatusShipped {
		return
	}
	if err := s.orders.UpdateStatus(ctx, ownerID, orderID, enums.OrderStatusDelivered); err != nil {
		s.logg.Error(logCtx, "shipment.order_delivered_update_failed", err)
		return
	}
	s.activity.Record(ctx, ownerID, orderID, enums.ActivityStatusUpdated, types.JSONMap{
		"previous_status": order.Status.String(),
		"new_status":      enums.OrderStatusDelivered.String(),
		"source":          "carrier",
	})
}
