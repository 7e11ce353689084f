package shipments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// Repository persists carrier shipments. Every method is owner-scoped.
type Repository interface {
	Create(ctx context.Context, ownerID uuid.UUID, shipment *models.Shipment) error
	Get(ctx context.Context, ownerID, shipmentID uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) ([]models.Shipment, error)
	ListByOrder(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.Shipment, error)
	UpdateStatus(ctx context.Context, ownerID, shipmentID uuid.UUID, status enums.ShipmentStatus, data types.JSONMap) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shipments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// InFlightLister feeds the status sync job. It spans owners; each row is
// then refreshed through the owner-scoped service.
type InFlightLister interface {
	ListInFlight(ctx context.Context, updatedBefore time.Time, afterID uuid.UUID, limit int) ([]models.Shipment, error)
}

func NewInFlightLister(db *gorm.DB) InFlightLister {
	return &repository{db: db}
}

// ListInFlight returns one keyset page of non-terminal shipments not touched
// since updatedBefore, ordered by id. Pass uuid.Nil for the first page.
func (r *repository) ListInFlight(ctx context.Context, updatedBefore time.Time, afterID uuid.UUID, limit int) ([]models.Shipment, error) {
	var rows []models.Shipment
	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", []enums.ShipmentStatus{enums.ShipmentStatusDelivered, enums.ShipmentStatusFailed}).
		Where("updated_at < ?", updatedBefore)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	err := query.Order("id ASC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Create(ctx context.Context, ownerID uuid.UUID, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	shipment.UserID = ownerID
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) Get(ctx context.Context, ownerID, shipmentID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", ownerID, shipmentID).
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) ([]models.Shipment, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Shipment
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByOrder(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.Shipment, error) {
	var rows []models.Shipment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ?", ownerID, orderID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus replaces the status and the stored carrier payload. data is
// written through the model so the JSON serializer applies.
func (r *repository) UpdateStatus(ctx context.Context, ownerID, shipmentID uuid.UUID, status enums.ShipmentStatus, data types.JSONMap) error {
	res := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("user_id = ? AND id = ?", ownerID, shipmentID).
		Select("status", "shipment_data", "updated_at").
		Updates(&models.Shipment{Status: status, ShipmentData: data})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
