package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// ActivityLog appends order activity entries. A failed append is logged and
// otherwise ignored; the mutation it describes has already been committed.
type ActivityLog struct {
	repo Repository
	logg *logger.Logger
}

// NewActivityLog builds an ActivityLog writing through repo.
func NewActivityLog(repo Repository, logg *logger.Logger) *ActivityLog {
	if logg == nil {
		logg = logger.Nop()
	}
	return &ActivityLog{repo: repo, logg: logg}
}

// Record appends one entry and reports whether it was written.
func (a *ActivityLog) Record(ctx context.Context, ownerID, orderID uuid.UUID, activity enums.ActivityType, details types.JSONMap) bool {
	if details == nil {
		details = types.JSONMap{}
	}
	entry := &models.OrderLog{
		OrderID:      orderID,
		ActivityType: activity,
		Details:      details,
	}
	if err := a.repo.AppendLog(ctx, ownerID, entry); err != nil {
		logCtx := a.logg.WithFields(ctx, map[string]any{
			"order_id":      orderID.String(),
			"activity_type": activity.String(),
		})
		a.logg.Error(logCtx, "order.activity_log_failed", err)
		return false
	}
	return true
}
