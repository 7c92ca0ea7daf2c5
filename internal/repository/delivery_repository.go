package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/iliyamo/localmarket/internal/model"
)

// DeliveryRepo loads products and zones for eligibility checks and the zone
// endpoint.  It uses gorm because both reads are plain lookups with
// associations; the spatial searches stay on database/sql.
type DeliveryRepo struct {
	db *gorm.DB
}

func NewDeliveryRepo(db *gorm.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// DeliveryProduct loads an active product with its zone and listings.
// Listings is nil when the product has none.
func (r *DeliveryRepo) DeliveryProduct(ctx context.Context, id string) (*model.DeliveryProduct, error) {
	ctx, span := tracer.Start(ctx, "DeliveryRepo.DeliveryProduct")
	defer span.End()

	var row deliveryProductRow
	err := r.db.WithContext(ctx).
		Preload("Zone").
		Preload("Listings").
		Where("id = ? AND is_active = ?", id, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "load delivery product %s", id)
	}
	return toDeliveryProduct(&row), nil
}

// ZoneByID loads a delivery zone, active or not.
func (r *DeliveryRepo) ZoneByID(ctx context.Context, id string) (*model.DeliveryZone, error) {
	ctx, span := tracer.Start(ctx, "DeliveryRepo.ZoneByID")
	defer span.End()

	var row deliveryZoneRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrZoneNotFound
		}
		return nil, errors.Wrapf(err, "load delivery zone %s", id)
	}
	return toDeliveryZone(&row), nil
}
