package performance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

// Repository reads the order history a score is derived from.
type Repository interface {
	Stats(ctx context.Context, vendorID uuid.UUID, from, to time.Time) (Stats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a read-only performance repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type eventCount struct {
	Event enums.OrderEvent
	Total int
}

type responseRow struct {
	OfferedAt   time.Time
	RespondedAt time.Time
}

type deliveryRow struct {
	ExpectedDeliveryDate *time.Time
	DeliveredAt          time.Time
}

var countedEvents = []enums.OrderEvent{
	enums.OrderEventAccept,
	enums.OrderEventReject,
	enums.OrderEventExpire,
	enums.OrderEventComplete,
}

// history scopes transition log rows to one vendor and a window on the
// row's own occurred_at.
func (r *repository) history(ctx context.Context, vendorID uuid.UUID, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("order_status_history AS h").
		Joins("JOIN orders o ON o.id = h.order_id").
		Where("o.vendor_id = ?", vendorID).
		Where("h.occurred_at >= ? AND h.occurred_at <= ?", from, to)
}

// Stats reads order outcomes from the transition log. The only order columns
// consulted are the vendor and the promised delivery date, which a
// transition never rewrites.
func (r *repository) Stats(ctx context.Context, vendorID uuid.UUID, from, to time.Time) (Stats, error) {
	var stats Stats

	var counts []eventCount
	err := r.history(ctx, vendorID, from, to).
		Select("h.event AS event, COUNT(*) AS total").
		Where("h.event IN ?", countedEvents).
		Group("h.event").
		Scan(&counts).Error
	if err != nil {
		return stats, err
	}
	for _, row := range counts {
		switch row.Event {
		case enums.OrderEventAccept:
			stats.AcceptedOffers = row.Total
		case enums.OrderEventReject:
			stats.RejectedOffers = row.Total
		case enums.OrderEventExpire:
			stats.ExpiredOffers = row.Total
		case enums.OrderEventComplete:
			stats.CompletedOrders = row.Total
		}
	}

	// The creation entry is the one row without an event.
	var responses []responseRow
	err = r.history(ctx, vendorID, from, to).
		Select("c.occurred_at AS offered_at, h.occurred_at AS responded_at").
		Joins("JOIN order_status_history c ON c.order_id = h.order_id AND c.event IS NULL").
		Where("h.event IN ?", []enums.OrderEvent{enums.OrderEventAccept, enums.OrderEventReject}).
		Scan(&responses).Error
	if err != nil {
		return stats, err
	}
	for _, row := range responses {
		if wait := row.RespondedAt.Sub(row.OfferedAt); wait >= 0 {
			stats.ResponseTimes = append(stats.ResponseTimes, wait)
		}
	}

	var deliveries []deliveryRow
	err = r.history(ctx, vendorID, from, to).
		Select("o.expected_delivery_date AS expected_delivery_date, h.occurred_at AS delivered_at").
		Where("h.event = ?", enums.OrderEventDeliver).
		Scan(&deliveries).Error
	if err != nil {
		return stats, err
	}
	stats.DeliveredOrders = len(deliveries)
	for _, row := range deliveries {
		if row.ExpectedDeliveryDate == nil || !row.DeliveredAt.After(*row.ExpectedDeliveryDate) {
			stats.OnTimeDeliveries++
		}
	}

	conn := r.db.WithContext(ctx)
	err = conn.Table("order_issues AS i").
		Joins("JOIN orders o ON o.id = i.order_id").
		Where("o.vendor_id = ? AND i.status = ?", vendorID, enums.IssueStatusOpen).
		Where("i.created_at >= ? AND i.created_at <= ?", from, to).
		Count(&stats.OpenIssues).Error
	if err != nil {
		return stats, err
	}

	err = conn.Model(&models.Dispute{}).
		Where("vendor_id = ? AND status IN ?", vendorID, []enums.DisputeStatus{
			enums.DisputeStatusOpen,
			enums.DisputeStatusUnderReview,
			enums.DisputeStatusEscalated,
		}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&stats.OpenDisputes).Error
	if err != nil {
		return stats, err
	}
	return stats, nil
}
