package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// Update writes the order row when it still carries expectedStatus and
	// expectedVersion. It reports false when the compare-and-set lost.
	Update(ctx context.Context, order *models.Order, expectedStatus enums.OrderStatus, expectedVersion int64) (bool, error)
	SaveItem(ctx context.Context, item *models.OrderItem) error
	SavePayment(ctx context.Context, payment *models.Payment) error
	SaveDelivery(ctx context.Context, delivery *models.Delivery) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, status *enums.OrderStatus, limit int) ([]models.Order, error)
	FindExpiredOffers(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	MarkDisputeOpened(ctx context.Context, orderID, disputeID uuid.UUID, at time.Time) (bool, error)
	ClearDispute(ctx context.Context, orderID, disputeID uuid.UUID, at time.Time) (bool, error)
	FlagRefund(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

// MaterialPrice is the authoritative catalog price for one material.
type MaterialPrice struct {
	ID        uuid.UUID
	Name      string
	Unit      string
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// LaborPrice is the authoritative catalog rate for one labor skill.
type LaborPrice struct {
	ID        uuid.UUID
	SkillName string
	Basis     enums.RateBasis
	Rate      decimal.Decimal
}

// PricingLookup resolves catalog prices for a vendor. Order creation never
// uses a price that did not come from here.
type PricingLookup interface {
	Material(ctx context.Context, vendorID, materialID uuid.UUID) (MaterialPrice, error)
	Labor(ctx context.Context, vendorID, laborRateID uuid.UUID) (LaborPrice, error)
}

// NumberGenerator issues human-readable order numbers, unique and increasing
// within a month.
type NumberGenerator interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
