package performance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

var now = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func openPerformanceDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.OrderLabor{},
		&models.Payment{},
		&models.Delivery{},
		&models.OrderStatusHistory{},
		&models.OrderIssue{},
		&models.Dispute{},
	))
	return conn
}

type vendorOrder struct {
	offered   time.Time
	response  time.Duration
	event     enums.OrderEvent
	expected  *time.Time
	delivered *time.Time
	completed bool
}

// seedVendorOrder writes the transition log for one order. The order row's
// own timestamps are left stale so only the log can produce the numbers.
func seedVendorOrder(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, seed vendorOrder) uuid.UUID {
	t.Helper()
	id := uuid.New()
	responded := seed.offered.Add(seed.response)
	order := &models.Order{
		ID:                   id,
		OrderNumber:          "BM-" + id.String()[:12],
		BuyerID:              uuid.New(),
		VendorID:             vendorID,
		OrderType:            enums.OrderTypeMaterial,
		Status:               enums.OrderStatusConfirmed,
		OfferedAt:            now,
		ExpectedDeliveryDate: seed.expected,
		Version:              2,
	}
	if seed.completed {
		order.Status = enums.OrderStatusCompleted
	}
	require.NoError(t, conn.Omit(clause.Associations).Create(order).Error)

	entries := []models.OrderStatusHistory{{
		NewStatus:  enums.OrderStatusPending,
		ActorType:  enums.ActorBuyer,
		OccurredAt: seed.offered,
	}}
	step := func(event enums.OrderEvent, status enums.OrderStatus, actor enums.ActorType, at time.Time) {
		entries = append(entries, models.OrderStatusHistory{NewStatus: status, Event: &event, ActorType: actor, OccurredAt: at})
	}
	switch seed.event {
	case enums.OrderEventAccept:
		step(seed.event, enums.OrderStatusConfirmed, enums.ActorVendor, responded)
	case enums.OrderEventReject:
		step(seed.event, enums.OrderStatusRejected, enums.ActorVendor, responded)
	default:
		step(seed.event, enums.OrderStatusRejected, enums.ActorSystem, responded)
	}
	last := responded
	if seed.delivered != nil {
		step(enums.OrderEventDeliver, enums.OrderStatusDelivered, enums.ActorVendor, *seed.delivered)
		last = *seed.delivered
	}
	if seed.completed {
		step(enums.OrderEventComplete, enums.OrderStatusCompleted, enums.ActorBuyer, last)
	}
	for i := range entries {
		entries[i].ID = uuid.New()
		entries[i].OrderID = id
		entries[i].Sequence = int64(i + 1)
		if i > 0 {
			prev := entries[i-1].NewStatus
			entries[i].PreviousStatus = &prev
		}
	}
	require.NoError(t, conn.Create(&entries).Error)
	return id
}

func TestVendorScoreReadsWindow(t *testing.T) {
	conn := openPerformanceDB(t)
	vendor := uuid.New()
	offered := now.Add(-48 * time.Hour)
	expected := now.Add(-24 * time.Hour)
	onTime := expected.Add(-time.Hour)
	late := expected.Add(20 * time.Hour)

	orderID := seedVendorOrder(t, conn, vendor, vendorOrder{offered: offered, response: 2 * time.Minute, event: enums.OrderEventAccept, expected: &expected, delivered: &onTime, completed: true})
	seedVendorOrder(t, conn, vendor, vendorOrder{offered: offered, response: 6 * time.Minute, event: enums.OrderEventAccept, expected: &expected, delivered: &late, completed: true})
	seedVendorOrder(t, conn, vendor, vendorOrder{offered: offered, response: 7 * time.Minute, event: enums.OrderEventReject})
	seedVendorOrder(t, conn, vendor, vendorOrder{offered: offered, response: 30 * time.Minute, event: enums.OrderEventExpire})
	seedVendorOrder(t, conn, vendor, vendorOrder{offered: now.Add(-60 * 24 * time.Hour), response: time.Hour, event: enums.OrderEventAccept, completed: true})
	// Delivered after the window closes.
	afterWindow := now.Add(time.Hour)
	seedVendorOrder(t, conn, vendor, vendorOrder{offered: now.Add(-40 * 24 * time.Hour), response: time.Minute, event: enums.OrderEventAccept, expected: &expected, delivered: &afterWindow})
	seedVendorOrder(t, conn, uuid.New(), vendorOrder{offered: offered, response: time.Minute, event: enums.OrderEventReject})


	require.NoError(t, conn.Create(&models.OrderIssue{
		ID: uuid.New(), OrderID: orderID, ReporterID: uuid.New(), ReporterRole: enums.ActorBuyer,
		Description: "short by two bags", IssueType: "missing", Status: enums.IssueStatusOpen,
		CreatedAt: now.Add(-time.Hour),
	}).Error)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Clock:  clock.NewFake(now),
		Config: config.PerformanceConfig{Window: 30 * 24 * time.Hour, MinCompletedOrders: 2},
	})
	require.NoError(t, err)

	score, err := svc.VendorScore(context.Background(), vendor)
	require.NoError(t, err)
	require.Equal(t, 2, score.AcceptedOffers)
	require.Equal(t, 1, score.RejectedOffers)
	require.Equal(t, 1, score.ExpiredOffers)
	require.Equal(t, 50.0, score.AcceptanceRate)
	require.Equal(t, 2, score.CompletedOrders)
	require.Equal(t, 2, score.DeliveredOrders)
	require.Equal(t, 1, score.OnTimeDeliveries)
	require.Equal(t, 5*time.Minute, score.AverageResponse)
	require.Equal(t, 80, score.ResponseScore)
	require.EqualValues(t, 1, score.OpenIssues)
	require.EqualValues(t, 0, score.OpenDisputes)
	// 0.3*50 + 0.4*50 + 0.3*80 = 59
	require.NotNil(t, score.Overall)
	require.Equal(t, 59, *score.Overall)
	require.Equal(t, enums.RatingBandPoor, *score.Band)
	require.Equal(t, now.Add(-30*24*time.Hour), score.WindowStart)
}
