package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk-backend/pkg/db"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

const defaultCurrency = "ILS"

// Service defines the owner-scoped order operations exposed over HTTP and
// used by the ingestion paths.
type Service interface {
	List(ctx context.Context, ownerID uuid.UUID, filters ListFilters, params pagination.Params) (*OrderList, error)
	ListDeleted(ctx context.Context, ownerID uuid.UUID) ([]OrderDTO, error)
	Get(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderDTO, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error)
	Logs(ctx context.Context, ownerID, orderID uuid.UUID) ([]LogDTO, error)
	Create(ctx context.Context, ownerID uuid.UUID, input OrderInput) (*OrderDTO, error)
	Ingest(ctx context.Context, ownerID uuid.UUID, input OrderInput) (*models.Order, bool, error)
	Update(ctx context.Context, ownerID, orderID uuid.UUID, input UpdateInput) (*OrderDTO, error)
	SoftDelete(ctx context.Context, ownerID, orderID uuid.UUID) error
	Restore(ctx context.Context, ownerID, orderID uuid.UUID) error
}

type service struct {
	repo     Repository
	activity *ActivityLog
	logg     *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		activity: NewActivityLog(repo, logg),
		logg:     logg,
	}, nil
}

// StoreError converts a repository error into the API taxonomy: a missing
// row becomes NOT_FOUND, anything else a DEPENDENCY_ERROR carrying the cause.
func StoreError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order store request failed")
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, filters ListFilters, params pagination.Params) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ownerID, filters, params)
	if err != nil {
		return nil, StoreError(err, "orders not found")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &OrderList{Orders: newOrderDTOs(page), NextCursor: next}, nil
}

func (s *service) ListDeleted(ctx context.Context, ownerID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListDeleted(ctx, ownerID)
	if err != nil {
		return nil, StoreError(err, "orders not found")
	}
	return newOrderDTOs(rows), nil
}

func (s *service) Get(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.Get(ctx, ownerID, orderID)
	if err != nil {
		return nil, StoreError(err, "order not found")
	}
	return NewOrderDTO(order), nil
}

func (s *service) Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, StoreError(err, "orders not found")
	}
	stats := &Stats{ByStatus: make(map[enums.OrderStatus]int64)}
	for _, status := range enums.OrderStatuses() {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

func (s *service) Logs(ctx context.Context, ownerID, orderID uuid.UUID) ([]LogDTO, error) {
	logs, err := s.repo.ListLogs(ctx, ownerID, orderID)
	if err != nil {
		return nil, StoreError(err, "order not found")
	}
	out := make([]LogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, LogDTO{
			ID:           l.ID,
			OrderID:      l.OrderID,
			ActivityType: l.ActivityType,
			Details:      l.Details,
			CreatedAt:    l.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input OrderInput) (*OrderDTO, error) {
	if input.Source == "" {
		input.Source = "manual"
	}
	order, err := s.buildOrder(input)
	if err != nil {
		return nil, err
	}
	if order.ExternalID != nil {
		if _, err := s.repo.FindByExternalID(ctx, ownerID, order.Platform, *order.ExternalID); err == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order with this external id already exists")
		} else if !db.IsNotFound(err) {
			return nil, StoreError(err, "order not found")
		}
	}
	if err := s.insert(ctx, ownerID, order, input.Source); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order with this external id already exists")
		}
		return nil, StoreError(err, "order not found")
	}
	return NewOrderDTO(order), nil
}

// Ingest saves an order coming from an import or platform event. An order
// already known by (platform, external id) is returned unchanged with
// created=false.
func (s *service) Ingest(ctx context.Context, ownerID uuid.UUID, input OrderInput) (*models.Order, bool, error) {
	order, err := s.buildOrder(input)
	if err != nil {
		return nil, false, err
	}
	if existing, ok, err := s.existing(ctx, ownerID, order); err != nil || ok {
		return existing, false, err
	}
	if err := s.insert(ctx, ownerID, order, input.Source); err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, ok, lookupErr := s.existing(ctx, ownerID, order)
			if lookupErr == nil && ok {
				return existing, false, nil
			}
		}
		return nil, false, StoreError(err, "order not found")
	}
	return order, true, nil
}

func (s *service) existing(ctx context.Context, ownerID uuid.UUID, order *models.Order) (*models.Order, bool, error) {
	if order.ExternalID == nil {
		return nil, false, nil
	}
	found, err := s.repo.FindByExternalID(ctx, ownerID, order.Platform, *order.ExternalID)
	if err == nil {
		return found, true, nil
	}
	if db.IsNotFound(err) {
		return nil, false, nil
	}
	return nil, false, StoreError(err, "order not found")
}

func (s *service) insert(ctx context.Context, ownerID uuid.UUID, order *models.Order, source string) error {
	if err := s.repo.Create(ctx, ownerID, order); err != nil {
		return err
	}
	s.activity.Record(ctx, ownerID, order.ID, enums.ActivityOrderCreated, types.JSONMap{
		"source":       source,
		"platform":     order.Platform.String(),
		"order_number": order.OrderNumber,
	})
	return nil
}

func (s *service) buildOrder(input OrderInput) (*models.Order, error) {
	number := types.CleanField(input.OrderNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_number is required").
			WithDetails(map[string]any{"missing_fields": []string{"order_number"}})
	}
	platform := input.Platform
	if platform == "" {
		platform = enums.PlatformManual
	}
	if !platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid platform %q", platform))
	}
	if input.WeightGrams != nil && *input.WeightGrams <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	currency := strings.ToUpper(types.CleanField(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	order := &models.Order{
		ExternalID:      optional(input.ExternalID),
		OrderNumber:     number,
		Platform:        platform,
		CustomerName:    optional(input.CustomerName),
		CustomerEmail:   optional(input.CustomerEmail),
		CustomerPhone:   optional(input.CustomerPhone),
		Currency:        currency,
		WeightGrams:     input.WeightGrams,
		ShippingAddress: input.ShippingAddress.Normalize(),
		Notes:           optional(input.Notes),
		Status:          enums.OrderStatusPending,
	}
	if input.TotalAmount != nil {
		order.TotalAmount = decimal.NewNullDecimal(input.TotalAmount.Round(2))
	}
	if input.OrderDate != nil && !input.OrderDate.IsZero() {
		order.OrderDate = input.OrderDate.UTC()
	}
	return order, nil
}

func (s *service) Update(ctx context.Context, ownerID, orderID uuid.UUID, input UpdateInput) (*OrderDTO, error) {
	updates := map[string]any{}
	setOptional := func(column string, v *string) {
		if v != nil {
			updates[column] = optional(v)
		}
	}
	setOptional("customer_name", input.CustomerName)
	setOptional("customer_email", input.CustomerEmail)
	setOptional("customer_phone", input.CustomerPhone)
	setOptional("notes", input.Notes)
	if input.WeightGrams != nil {
		if *input.WeightGrams <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
		}
		updates["weight"] = *input.WeightGrams
	}
	if input.ShippingAddress != nil {
		encoded, err := json.Marshal(input.ShippingAddress.Normalize())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
		}
		updates["shipping_address"] = string(encoded)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	fields := make([]string, 0, len(updates))
	for column := range updates {
		fields = append(fields, column)
	}

	if err := s.repo.UpdateFields(ctx, ownerID, orderID, updates); err != nil {
		return nil, StoreError(err, "order not found")
	}
	slices.Sort(fields)
	s.activity.Record(ctx, ownerID, orderID, enums.ActivityOrderUpdated, types.JSONMap{"fields": fields})

	return s.Get(ctx, ownerID, orderID)
}

func (s *service) SoftDelete(ctx context.Context, ownerID, orderID uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, ownerID, orderID, ownerID); err != nil {
		return StoreError(err, "order not found")
	}
	s.activity.Record(ctx, ownerID, orderID, enums.ActivityOrderDeleted, types.JSONMap{"deleted_by": ownerID.String()})
	return nil
}

func (s *service) Restore(ctx context.Context, ownerID, orderID uuid.UUID) error {
	if err := s.repo.Restore(ctx, ownerID, orderID); err != nil {
		return StoreError(err, "deleted order not found")
	}
	s.activity.Record(ctx, ownerID, orderID, enums.ActivityOrderRestored, nil)
	return nil
}

func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := types.CleanField(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
