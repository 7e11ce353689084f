package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

const defaultErrorMessageCap = 3

// Service drives order status transitions, including carrier dispatch, for
// single orders and selected batches.
type Service interface {
	DispatchToCarrier(ctx context.Context, ownerID, orderID uuid.UUID) (*ShipmentRef, error)
	UpdateStatus(ctx context.Context, ownerID, orderID uuid.UUID, target enums.OrderStatus) (*orders.OrderDTO, error)
	AdvanceStage(ctx context.Context, ownerID, orderID uuid.UUID, stage enums.OrderStage) (*orders.OrderDTO, error)
	BulkDispatch(ctx context.Context, ownerID uuid.UUID, orderIDs []uuid.UUID) (*BulkResult, error)
	BulkSoftDelete(ctx context.Context, ownerID uuid.UUID, orderIDs []uuid.UUID) (*BulkResult, error)
}

type shipmentStore interface {
	Create(ctx context.Context, ownerID uuid.UUID, shipment *models.Shipment) error
}

type accountLoader interface {
	Account(ctx context.Context, ownerID uuid.UUID) (*carrier.Account, error)
}

type shipmentCreator interface {
	CreateShipment(ctx context.Context, creds hfd.Credentials, req hfd.ShipmentRequest) (*hfd.ShipmentResult, error)
}

type recorder interface {
	IncDispatch(result string)
	ObserveBulk(operation, outcome string, success, failed, skipped int)
}

// ServiceParams groups dependencies for the dispatch service.
type ServiceParams struct {
	Orders    orders.Repository
	Shipments shipmentStore
	Accounts  accountLoader
	Gateway   shipmentCreator
	// Metrics is optional.
	Metrics recorder
	Logger  *logger.Logger
	// ErrorMessageCap bounds the per-item messages a bulk result carries.
	ErrorMessageCap int
}

type service struct {
	orders    orders.Repository
	shipments shipmentStore
	accounts  accountLoader
	gateway   shipmentCreator
	metrics   recorder
	activity  *orders.ActivityLog
	logg      *logger.Logger
	errorCap  int
}

// ShipmentRef identifies the shipment a successful dispatch produced.
type ShipmentRef struct {
	OrderID        uuid.UUID `json:"order_id"`
	ShipmentID     uuid.UUID `json:"shipment_id"`
	ShipmentNumber string    `json:"shipment_number"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
}

// NewService constructs the dispatch service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Shipments == nil {
		return nil, fmt.Errorf("shipments repository required")
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
	errorCap := params.ErrorMessageCap
	if errorCap <= 0 {
		errorCap = defaultErrorMessageCap
	}
	return &service{
		orders:    params.Orders,
		shipments: params.Shipments,
		accounts:  params.Accounts,
		gateway:   params.Gateway,
		metrics:   params.Metrics,
		activity:  orders.NewActivityLog(params.Orders, params.Logger),
		logg:      params.Logger,
		errorCap:  errorCap,
	}, nil
}

// DispatchToCarrier creates a carrier shipment for one order.
func (s *service) DispatchToCarrier(ctx context.Context, ownerID, orderID uuid.UUID) (*ShipmentRef, error) {
	order, err := s.orders.Get(ctx, ownerID, orderID)
	if err != nil {
		return nil, orders.StoreError(err, "order not found")
	}
	if !order.Status.IsDispatchable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be dispatched in its current status").
			WithDetails(map[string]any{"status": order.Status.String()})
	}
	account, err := s.accounts.Account(ctx, ownerID)
	if err != nil {
		s.observe("unconfigured")
		return nil, err
	}
	return s.dispatch(ctx, ownerID, order, account, false)
}

// dispatch runs the carrier call for an order already known to be eligible.
// Configuration has been resolved by the caller. With markInvalid set, an
// order that cannot be turned into a carrier payload is moved to error like
// a carrier failure; otherwise it is left untouched.
func (s *service) dispatch(ctx context.Context, ownerID uuid.UUID, order *models.Order, account *carrier.Account, markInvalid bool) (*ShipmentRef, error) {
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())

	req, err := buildShipmentRequest(order, account.Sender)
	if err != nil {
		s.observe("invalid")
		if markInvalid {
			s.markFailed(logCtx, ownerID, order, err)
		}
		return nil, err
	}

	result, err := s.gateway.CreateShipment(ctx, account.Credentials, req)
	// The outcome must be written even if the caller went away mid-call: a
	// shipment the carrier accepted has to leave the order shipped.
	logCtx = context.WithoutCancel(logCtx)
	if err != nil {
		s.observe("failed")
		carrierErr := asCarrierError(err)
		s.markFailed(logCtx, ownerID, order, carrierErr)
		return nil, carrierErr
	}

	shipment := &models.Shipment{
		OrderID:           order.ID,
		HFDShipmentNumber: result.ShipmentNumber,
		Status:            enums.ShipmentStatusSentToHFD,
		ShipmentData:      shipmentData(result),
	}
	if result.TrackingNumber != "" {
		tracking := result.TrackingNumber
		shipment.TrackingNumber = &tracking
	}
	// The carrier shipment exists even when the insert fails, so the order is
	// still moved to shipped to keep it out of the next dispatch run.
	persistErr := s.shipments.Create(logCtx, ownerID, shipment)
	if persistErr != nil {
		s.logg.Error(s.logg.WithField(logCtx, "shipment_number", result.ShipmentNumber), "dispatch.shipment_persist_failed", persistErr)
	}

	if err := s.orders.UpdateStatus(logCtx, ownerID, order.ID, enums.OrderStatusShipped); err != nil {
		s.observe("failed")
		return nil, orders.StoreError(err, "order not found")
	}
	details := types.JSONMap{
		"shipment_number": result.ShipmentNumber,
		"previous_status": order.Status.String(),
	}
	if persistErr == nil {
		details["shipment_id"] = shipment.ID.String()
	}
	if result.TrackingNumber != "" {
		details["tracking_number"] = result.TrackingNumber
	}
	s.activity.Record(logCtx, ownerID, order.ID, enums.ActivityShipmentCreated, details)
	s.observe("shipped")

	if persistErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, persistErr, "shipment created at carrier but could not be stored").
			WithDetails(map[string]any{"shipment_number": result.ShipmentNumber})
	}
	s.logg.Info(s.logg.WithField(logCtx, "shipment_number", result.ShipmentNumber), "dispatch.shipped")
	return &ShipmentRef{
		OrderID:        order.ID,
		ShipmentID:     shipment.ID,
		ShipmentNumber: result.ShipmentNumber,
		TrackingNumber: result.TrackingNumber,
	}, nil
}

// markFailed moves the order to error and logs shipment_creation_failed with
// the failure message.
func (s *service) markFailed(ctx context.Context, ownerID uuid.UUID, order *models.Order, cause error) {
	s.logg.Error(ctx, "dispatch.failed", cause)

	if err := s.orders.UpdateStatus(ctx, ownerID, order.ID, enums.OrderStatusError); err != nil {
		s.logg.Error(ctx, "dispatch.error_status_failed", err)
	}
	details := types.JSONMap{
		"error":           pkgerrors.MessageOf(cause),
		"previous_status": order.Status.String(),
	}
	if typed := pkgerrors.As(cause); typed != nil && typed.Code() == pkgerrors.CodeValidation {
		if extra, ok := typed.Details().(map[string]any); ok {
			details["missing_fields"] = extra["missing_fields"]
		}
	}
	s.activity.Record(ctx, ownerID, order.ID, enums.ActivityShipmentCreationFailed, details)
}

func asCarrierError(err error) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeCarrier) {
		return err
	}
	msg := pkgerrors.MessageOf(err)
	if msg == "" {
		msg = "carrier request failed"
	}
	return pkgerrors.Wrap(pkgerrors.CodeCarrier, err, msg)
}

// UpdateStatus writes a new lifecycle status without a carrier call.
func (s *service) UpdateStatus(ctx context.Context, ownerID, orderID uuid.UUID, target enums.OrderStatus) (*orders.OrderDTO, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": target.String()})
	}
	order, err := s.orders.Get(ctx, ownerID, orderID)
	if err != nil {
		return nil, orders.StoreError(err, "order not found")
	}
	if err := checkTransition(order.Status, target); err != nil {
		return nil, err
	}
	if order.Status == target {
		return orders.NewOrderDTO(order), nil
	}
	if err := s.orders.UpdateStatus(ctx, ownerID, orderID, target); err != nil {
		return nil, orders.StoreError(err, "order not found")
	}
	s.activity.Record(ctx, ownerID, orderID, enums.ActivityStatusUpdated, types.JSONMap{
		"new_status":      target.String(),
		"previous_status": order.Status.String(),
	})
	order.Status = target
	return orders.NewOrderDTO(order), nil
}

// AdvanceStage moves an order along the pick/pack board.
func (s *service) AdvanceStage(ctx context.Context, ownerID, orderID uuid.UUID, stage enums.OrderStage) (*orders.OrderDTO, error) {
	if !stage.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order stage").
			WithDetails(map[string]any{"stage": stage.String()})
	}
	order, err := s.orders.Get(ctx, ownerID, orderID)
	if err != nil {
		return nil, orders.StoreError(err, "order not found")
	}
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusProcessed, enums.OrderStatusInProcess:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is past the fulfilment stages").
			WithDetails(map[string]any{"status": order.Status.String(), "stage": stage.String()})
	}
	target, activity := stage.Target()
	if target != order.Status {
		if err := s.orders.UpdateStatus(ctx, ownerID, orderID, target); err != nil {
			return nil, orders.StoreError(err, "order not found")
		}
	}
	s.activity.Record(ctx, ownerID, orderID, activity, types.JSONMap{
		"stage":           stage.String(),
		"new_status":      target.String(),
		"previous_status": order.Status.String(),
	})
	order.Status = target
	return orders.NewOrderDTO(order), nil
}

func checkTransition(from, to enums.OrderStatus) error {
	if from.IsTerminal() && from != to {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status is final").
			WithDetails(map[string]any{"from": from.String(), "to": to.String()})
	}
	return nil
}

func (s *service) observe(result string) {
	if s.metrics != nil {
		s.metrics.IncDispatch(result)
	}
}
