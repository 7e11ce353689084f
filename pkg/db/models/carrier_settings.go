package models

import (
	"time"

	"github.com/google/uuid"
)

// CarrierSettings holds one owner's carrier account. TokenCiphertext is the
// sealed carrier token; the plaintext never touches the database.
type CarrierSettings struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ClientNumber     string    `gorm:"column:client_number;not null"`
	TokenCiphertext  string    `gorm:"column:token_ciphertext;not null"`
	ShipmentTypeCode string    `gorm:"column:shipment_type_code;not null"`
	CargoTypeCode    string    `gorm:"column:cargo_type_code;not null"`
	SenderName       *string   `gorm:"column:sender_name"`
	SenderStreet     *string   `gorm:"column:sender_street"`
	SenderCity       *string   `gorm:"column:sender_city"`
	SenderZip        *string   `gorm:"column:sender_zip"`
	SenderPhone      *string   `gorm:"column:sender_phone"`
	IsActive         bool      `gorm:"column:is_active;not null"`
	AutoDispatch     bool      `gorm:"column:auto_dispatch;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CarrierSettings) TableName() string { return "carrier_settings" }
