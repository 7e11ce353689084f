package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their activity
// log. Every method takes the owner id; there is no unscoped read or write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, ownerID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Order, error)
	ListDeleted(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	ListByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Order, error)
	Get(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error)
	FindByExternalID(ctx context.Context, ownerID uuid.UUID, platform enums.Platform, externalID string) (*models.Order, error)
	Create(ctx context.Context, ownerID uuid.UUID, order *models.Order) error
	UpdateStatus(ctx context.Context, ownerID, orderID uuid.UUID, status enums.OrderStatus) error
	UpdateFields(ctx context.Context, ownerID, orderID uuid.UUID, updates map[string]any) error
	SoftDelete(ctx context.Context, ownerID, orderID, deletedBy uuid.UUID) error
	Restore(ctx context.Context, ownerID, orderID uuid.UUID) error
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[enums.OrderStatus]int64, error)
	AppendLog(ctx context.Context, ownerID uuid.UUID, entry *models.OrderLog) error
	ListLogs(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.OrderLog, error)
}
