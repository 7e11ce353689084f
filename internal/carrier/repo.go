package carrier

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
)

// Repository persists the per-owner carrier settings row.
type Repository interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.CarrierSettings, error)
	Upsert(ctx context.Context, ownerID uuid.UUID, settings *models.CarrierSettings) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a carrier settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.CarrierSettings, error) {
	var settings models.CarrierSettings
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert writes the owner's single settings row, replacing every editable
// column when one already exists. The existing row keeps its id.
func (r *repository) Upsert(ctx context.Context, ownerID uuid.UUID, settings *models.CarrierSettings) error {
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	settings.UserID = ownerID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"client_number",
				"token_ciphertext",
				"shipment_type_code",
				"cargo_type_code",
				"sender_name",
				"sender_street",
				"sender_city",
				"sender_zip",
				"sender_phone",
				"is_active",
				"auto_dispatch",
				"updated_at",
			}),
		}).
		Create(settings).Error
}
