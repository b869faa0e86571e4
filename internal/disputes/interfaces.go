package disputes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/redis"
)

// Repository persists disputes with their evidence and timeline.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindActiveForOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	// Update writes the dispute only while its stored version matches.
	Update(ctx context.Context, dispute *models.Dispute, expectedVersion int64) (bool, error)
	AddEvidence(ctx context.Context, evidence *models.DisputeEvidence) error
	AppendTimeline(ctx context.Context, entry *models.DisputeTimelineEntry) error
	ListTimeline(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeTimelineEntry, error)
}

// IssueLinker marks the originating issue as escalated inside the dispute's
// transaction. MarkEscalated reports false when the issue is no longer open.
type IssueLinker interface {
	MarkEscalated(ctx context.Context, tx *gorm.DB, issueID, disputeID uuid.UUID, at time.Time) (bool, error)
	IsEscalated(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (bool, error)
}

// LockStore is the Redis surface used to serialise dispute creation per order.
type LockStore interface {
	redis.LockStore
	LockKey(scope, id string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
