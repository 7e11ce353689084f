package carrier

import (
	"time"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
)

// UpsertInput is the settings form. A blank token keeps the stored one.
type UpsertInput struct {
	ClientNumber     string  `json:"client_number" validate:"required,max=64"`
	Token            *string `json:"token,omitempty" validate:"omitempty,max=512"`
	ShipmentTypeCode string  `json:"shipment_type_code" validate:"required,max=32"`
	CargoTypeCode    string  `json:"cargo_type_code" validate:"required,max=32"`
	SenderName       *string `json:"sender_name,omitempty" validate:"omitempty,max=128"`
	SenderStreet     *string `json:"sender_street,omitempty" validate:"omitempty,max=256"`
	SenderCity       *string `json:"sender_city,omitempty" validate:"omitempty,max=128"`
	SenderZip        *string `json:"sender_zip,omitempty" validate:"omitempty,max=16"`
	SenderPhone      *string `json:"sender_phone,omitempty" validate:"omitempty,max=32"`
	IsActive         *bool   `json:"is_active,omitempty"`
	AutoDispatch     *bool   `json:"auto_dispatch,omitempty"`
}

// SettingsDTO is the settings payload returned to clients. The token is
// never echoed back; TokenHint shows its last characters.
type SettingsDTO struct {
	ID               uuid.UUID `json:"id"`
	ClientNumber     string    `json:"client_number"`
	HasToken         bool      `json:"has_token"`
	TokenHint        string    `json:"token_hint,omitempty"`
	ShipmentTypeCode string    `json:"shipment_type_code"`
	CargoTypeCode    string    `json:"cargo_type_code"`
	SenderName       *string   `json:"sender_name,omitempty"`
	SenderStreet     *string   `json:"sender_street,omitempty"`
	SenderCity       *string   `json:"sender_city,omitempty"`
	SenderZip        *string   `json:"sender_zip,omitempty"`
	SenderPhone      *string   `json:"sender_phone,omitempty"`
	IsActive         bool      `json:"is_active"`
	AutoDispatch     bool      `json:"auto_dispatch"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newSettingsDTO(s *models.CarrierSettings, token string) *SettingsDTO {
	dto := &SettingsDTO{
		ID:               s.ID,
		ClientNumber:     s.ClientNumber,
		HasToken:         token != "",
		ShipmentTypeCode: s.ShipmentTypeCode,
		CargoTypeCode:    s.CargoTypeCode,
		SenderName:       s.SenderName,
		SenderStreet:     s.SenderStreet,
		SenderCity:       s.SenderCity,
		SenderZip:        s.SenderZip,
		SenderPhone:      s.SenderPhone,
		IsActive:         s.IsActive,
		AutoDispatch:     s.AutoDispatch,
		UpdatedAt:        s.UpdatedAt,
	}
	if len(token) > 4 {
		dto.TokenHint = "****" + token[len(token)-4:]
	}
	return dto
}

// Account is everything a dispatch needs from the owner's settings.
type Account struct {
	Credentials  hfd.Credentials
	Sender       hfd.Party
	AutoDispatch bool
}

// TestResult reports a successful credential check.
type TestResult struct {
	OK        bool      `json:"ok"`
	CheckedAt time.Time `json:"checked_at"`
}
