package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
)

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

// owned scopes a query to the owner's rows.
func (r *repository) owned(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", ownerID)
}

// active scopes a query to the owner's non-deleted rows.
func (r *repository) active(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return r.owned(ctx, ownerID).Where("deleted_at IS NULL")
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Order, error) {
	q := r.active(ctx, ownerID)

	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if term := strings.ToLower(strings.TrimSpace(filters.Query)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where(
			"LOWER(order_number) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(customer_name, '')) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(customer_email, '')) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListDeleted(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.owned(ctx, ownerID).
		Where("deleted_at IS NOT NULL").
		Order("deleted_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Order
	err := r.active(ctx, ownerID).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Get(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.active(ctx, ownerID).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByExternalID includes soft-deleted rows so a re-delivered platform
// event does not resurrect an order the owner removed.
func (r *repository) FindByExternalID(ctx context.Context, ownerID uuid.UUID, platform enums.Platform, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.owned(ctx, ownerID).
		Where("platform = ? AND external_id = ?", platform, externalID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Create(ctx context.Context, ownerID uuid.UUID, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.UserID = ownerID
	if order.OrderDate.IsZero() {
		order.OrderDate = r.now().UTC()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) UpdateStatus(ctx context.Context, ownerID, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.UpdateFields(ctx, ownerID, orderID, map[string]any{"status": status})
}

func (r *repository) UpdateFields(ctx context.Context, ownerID, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = r.now().UTC()
	}
	res := r.active(ctx, ownerID).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, ownerID, orderID, deletedBy uuid.UUID) error {
	now := r.now().UTC()
	res := r.active(ctx, ownerID).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"deleted_at": now,
			"deleted_by": deletedBy,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Restore(ctx context.Context, ownerID, orderID uuid.UUID) error {
	res := r.owned(ctx, ownerID).
		Where("id = ? AND deleted_at IS NOT NULL", orderID).
		Updates(map[string]any{
			"deleted_at": nil,
			"deleted_by": nil,
			"updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Total  int64
	}
	err := r.active(ctx, ownerID).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *repository) AppendLog(ctx context.Context, ownerID uuid.UUID, entry *models.OrderLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.UserID = ownerID
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListLogs(ctx context.Context, ownerID, orderID uuid.UUID) ([]models.OrderLog, error) {
	var logs []models.OrderLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ?", ownerID, orderID).
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
