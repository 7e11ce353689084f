package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// OrderLog is an immutable activity entry attached to an order.
type OrderLog struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	ActivityType enums.ActivityType `gorm:"column:activity_type;type:text;not null"`
	Details      types.JSONMap      `gorm:"column:details;type:jsonb;serializer:json"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLog) TableName() string { return "order_logs" }
