package issues

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Repository persists order issues.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, issue *models.OrderIssue) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderIssue, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderIssue, error)
	// Resolve closes the issue only while it is still open.
	Resolve(ctx context.Context, issue *models.OrderIssue) (bool, error)
	MarkEscalated(ctx context.Context, tx *gorm.DB, issueID, disputeID uuid.UUID, at time.Time) (bool, error)
	IsEscalated(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an issues repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, issue *models.OrderIssue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderIssue, error) {
	var issue models.OrderIssue
	if err := r.db.WithContext(ctx).First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderIssue, error) {
	var rows []models.OrderIssue
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Resolve(ctx context.Context, issue *models.OrderIssue) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderIssue{}).
		Where("id = ? AND status = ?", issue.ID, enums.IssueStatusOpen).
		Updates(map[string]any{
			"status":      enums.IssueStatusResolved,
			"resolution":  issue.Resolution,
			"resolved_by": issue.ResolvedBy,
			"resolved_at": issue.ResolvedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkEscalated runs on the caller's transaction so the issue flips in the
// same commit as the dispute it spawned.
func (r *repository) MarkEscalated(ctx context.Context, tx *gorm.DB, issueID, disputeID uuid.UUID, at time.Time) (bool, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).
		Model(&models.OrderIssue{}).
		Where("id = ? AND status = ? AND escalated_to_dispute = ?", issueID, enums.IssueStatusOpen, false).
		Updates(map[string]any{
			"status":               enums.IssueStatusEscalated,
			"escalated_to_dispute": true,
			"dispute_id":           disputeID,
			"escalated_at":         at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IsEscalated reads the escalation flag through tx so a losing escalation can
// tell a duplicate apart from a closed issue.
func (r *repository) IsEscalated(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (bool, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var issue models.OrderIssue
	err := conn.WithContext(ctx).
		Select("escalated_to_dispute").
		Where("id = ?", issueID).
		First(&issue).Error
	if err != nil {
		return false, err
	}
	return issue.EscalatedToDispute, nil
}
