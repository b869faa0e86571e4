package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a disputes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(dispute).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC").Order("id ASC") }).
		Where("id = ?", id).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindActiveForOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("id = (?)", r.db.Model(&models.Order{}).Select("active_dispute_id").Where("id = ?", orderID)).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Update(ctx context.Context, dispute *models.Dispute, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(dispute).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Where("version = ?", expectedVersion).
		Updates(dispute)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AddEvidence(ctx context.Context, evidence *models.DisputeEvidence) error {
	return r.db.WithContext(ctx).Create(evidence).Error
}

func (r *repository) AppendTimeline(ctx context.Context, entry *models.DisputeTimelineEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTimeline(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeTimelineEntry, error) {
	var rows []models.DisputeTimelineEntry
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("occurred_at ASC").
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
