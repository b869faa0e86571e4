package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

// Repository reads and writes vendor materials and labor rates.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Material resolves the current price of an active material owned by the vendor.
func (r *Repository) Material(ctx context.Context, vendorID, materialID uuid.UUID) (orders.MaterialPrice, error) {
	var material models.Material
	err := r.db.WithContext(ctx).
		Where("id = ? AND vendor_id = ? AND active = ?", materialID, vendorID, true).
		First(&material).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return orders.MaterialPrice{}, pkgerrors.New(pkgerrors.CodeNotFound, "material not found for vendor").
				WithDetails(map[string]any{"material_id": materialID})
		}
		return orders.MaterialPrice{}, err
	}
	return orders.MaterialPrice{
		ID:        material.ID,
		Name:      material.Name,
		Unit:      material.Unit,
		UnitPrice: material.UnitPrice,
		TaxRate:   material.TaxRate,
	}, nil
}

// Labor resolves the current rate of an active labor skill offered by the vendor.
func (r *Repository) Labor(ctx context.Context, vendorID, laborRateID uuid.UUID) (orders.LaborPrice, error) {
	var rate models.LaborRate
	err := r.db.WithContext(ctx).
		Where("id = ? AND vendor_id = ? AND active = ?", laborRateID, vendorID, true).
		First(&rate).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return orders.LaborPrice{}, pkgerrors.New(pkgerrors.CodeNotFound, "labor rate not found for vendor").
				WithDetails(map[string]any{"labor_rate_id": laborRateID})
		}
		return orders.LaborPrice{}, err
	}
	return orders.LaborPrice{
		ID:        rate.ID,
		SkillName: rate.SkillName,
		Basis:     rate.RateBasis,
		Rate:      rate.Rate,
	}, nil
}

// CreateMaterial inserts a catalog material.
func (r *Repository) CreateMaterial(ctx context.Context, material *models.Material) error {
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(material).Error
}

// CreateLaborRate inserts a labor rate.
func (r *Repository) CreateLaborRate(ctx context.Context, rate *models.LaborRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rate).Error
}

// ListMaterials returns the vendor's active materials ordered by name.
func (r *Repository) ListMaterials(ctx context.Context, vendorID uuid.UUID) ([]models.Material, error) {
	var rows []models.Material
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active = ?", vendorID, true).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListLaborRates returns the vendor's active labor rates ordered by skill.
func (r *Repository) ListLaborRates(ctx context.Context, vendorID uuid.UUID) ([]models.LaborRate, error) {
	var rows []models.LaborRate
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active = ?", vendorID, true).
		Order("skill_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

var _ orders.PricingLookup = (*Repository)(nil)
