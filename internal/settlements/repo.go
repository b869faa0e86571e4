package settlements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/pagination"
)

// Repository persists settlements and the settlement linkage on orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	PendingVendors(ctx context.Context, cutoff time.Time, vendorID *uuid.UUID) ([]uuid.UUID, error)
	EligibleOrders(ctx context.Context, vendorID uuid.UUID, cutoff time.Time) ([]models.Order, error)
	// ClaimOrder flips pending to claimed and bumps the order version so a
	// concurrent order write loses its compare-and-set. False means another
	// run owns it.
	ClaimOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkSettled(ctx context.Context, orderIDs []uuid.UUID, settlementID uuid.UUID, settledAt time.Time) (int64, error)
	PayoutAccount(ctx context.Context, vendorID uuid.UUID) (*models.VendorPayoutAccount, error)
	Create(ctx context.Context, settlement *models.Settlement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, reference string, processedAt time.Time) (bool, error)
	List(ctx context.Context, params listParams) ([]models.Settlement, *pagination.Key, error)
}

type listParams struct {
	VendorID *uuid.UUID
	Status   *enums.SettlementStatus
	Limit    int
	After    *pagination.Key
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) eligible(ctx context.Context, cutoff time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusCompleted).
		Where("settlement_status = ?", enums.PayoutStatusPending).
		Where("has_active_dispute = ?", false).
		Where("completed_at <= ?", cutoff)
}

func (r *repository) PendingVendors(ctx context.Context, cutoff time.Time, vendorID *uuid.UUID) ([]uuid.UUID, error) {
	query := r.eligible(ctx, cutoff)
	if vendorID != nil {
		query = query.Where("vendor_id = ?", *vendorID)
	}
	var vendors []uuid.UUID
	if err := query.Distinct("vendor_id").Order("vendor_id ASC").Pluck("vendor_id", &vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *repository) EligibleOrders(ctx context.Context, vendorID uuid.UUID, cutoff time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.eligible(ctx, cutoff).
		Where("vendor_id = ?", vendorID).
		Order("completed_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ClaimOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND settlement_status = ? AND has_active_dispute = ?", orderID, enums.PayoutStatusPending, false).
		UpdateColumns(map[string]any{
			"settlement_status": enums.PayoutStatusClaimed,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkSettled(ctx context.Context, orderIDs []uuid.UUID, settlementID uuid.UUID, settledAt time.Time) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ? AND settlement_status = ?", orderIDs, enums.PayoutStatusClaimed).
		UpdateColumns(map[string]any{
			"settlement_status": enums.PayoutStatusSettled,
			"settlement_id":     settlementID,
			"settled_at":        settledAt,
			"version":           gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) PayoutAccount(ctx context.Context, vendorID uuid.UUID) (*models.VendorPayoutAccount, error) {
	var account models.VendorPayoutAccount
	err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Create(ctx context.Context, settlement *models.Settlement) error {
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("completed_at ASC").Order("id ASC") }).
		Where("id = ?", id).
		First(&settlement).Error
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, reference string, processedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Settlement{}).
		Where("id = ? AND status = ?", id, enums.SettlementStatusPending).
		Updates(map[string]any{
			"status":            enums.SettlementStatusProcessed,
			"payment_reference": reference,
			"processed_at":      processedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Settlement, *pagination.Key, error) {
	query := r.db.WithContext(ctx).Model(&models.Settlement{})
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.After != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", params.After.At, params.After.At, params.After.ID)
	}

	var rows []models.Settlement
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.FetchSize(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(s models.Settlement) pagination.Key {
		return pagination.Key{At: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}
