package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

func openOrdersDB(t *testing.T) *gorm.DB {
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
	))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func seedOrder(t *testing.T, repo Repository, vendorID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	id := uuid.New()
	order := &models.Order{
		ID:          id,
		OrderNumber: "BM-202603-" + id.String()[:6],
		BuyerID:     uuid.New(),
		VendorID:    vendorID,
		OrderType:   enums.OrderTypeMaterial,
		Status:      status,
		GrandTotal:  decimal.RequireFromString("100"),
		OfferedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Version:     1,
		Items: []models.OrderItem{{
			ID: uuid.New(), OrderID: id, Position: 1, MaterialID: uuid.New(),
			Name: "sand", Unit: "ton", UnitPrice: decimal.RequireFromString("100"),
			Quantity: decimal.RequireFromString("1"), LineTotal: decimal.RequireFromString("100"),
		}},
		Payment: &models.Payment{
			ID: uuid.New(), OrderID: id, Method: enums.PaymentMethodCOD,
			Status: enums.PaymentStatusPending, Amount: decimal.RequireFromString("100"),
		},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestRepositoryUpdateIsCompareAndSet(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending)

	order.Status = enums.OrderStatusConfirmed
	order.Version = 2
	ok, err := repo.Update(ctx, order, enums.OrderStatusPending, 1)
	require.NoError(t, err)
	require.True(t, ok)

	stale := *order
	stale.Status = enums.OrderStatusCancelled
	stale.Version = 2
	ok, err = repo.Update(ctx, &stale, enums.OrderStatusPending, 1)
	require.NoError(t, err)
	require.False(t, ok, "stale writer must lose")

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	require.EqualValues(t, 2, stored.Version)
	require.Len(t, stored.Items, 1)
	require.NotNil(t, stored.Payment)
}

func TestRepositoryHistoryRoundTrip(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, status := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed} {
		require.NoError(t, repo.AppendHistory(ctx, &models.OrderStatusHistory{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Sequence:   int64(i + 1),
			NewStatus:  status,
			ActorType:  enums.ActorVendor,
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rows, err := repo.ListHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.EqualValues(t, 1, rows[0].Sequence)
	require.Equal(t, enums.OrderStatusConfirmed, rows[1].NewStatus)
}

func TestRepositoryDisputeFlagIsExclusive(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New(), enums.OrderStatusDelivered)

	first, second := uuid.New(), uuid.New()
	opened := time.Date(2026, 3, 5, 11, 30, 0, 0, time.UTC)
	closed := opened.Add(48 * time.Hour)
	ok, err := repo.MarkDisputeOpened(ctx, order.ID, first, opened)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkDisputeOpened(ctx, order.ID, second, opened)
	require.NoError(t, err)
	require.False(t, ok, "second dispute must not take the flag")

	ok, err = repo.ClearDispute(ctx, order.ID, second, closed)
	require.NoError(t, err)
	require.False(t, ok)

	flagged, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, opened.Equal(flagged.UpdatedAt.UTC()), flagged.UpdatedAt.String())

	ok, err = repo.ClearDispute(ctx, order.ID, first, closed)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, stored.HasActiveDispute)
	require.Nil(t, stored.ActiveDisputeID)
	require.EqualValues(t, 3, stored.Version)
	require.True(t, closed.Equal(stored.UpdatedAt.UTC()), stored.UpdatedAt.String())
}

func TestRepositorySweepQueries(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	vendorID := uuid.New()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	expired := seedOrder(t, repo, vendorID, enums.OrderStatusPending)
	past := now.Add(-time.Minute)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", expired.ID).Update("offer_expires_at", past).Error)

	fresh := seedOrder(t, repo, vendorID, enums.OrderStatusPending)
	future := now.Add(time.Minute)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", fresh.ID).Update("offer_expires_at", future).Error)

	delivered := seedOrder(t, repo, vendorID, enums.OrderStatusDelivered)
	deliveredAt := now.Add(-96 * time.Hour)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", delivered.ID).Update("actual_delivery_date", deliveredAt).Error)

	offers, err := repo.FindExpiredOffers(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.Equal(t, expired.ID, offers[0].ID)

	due, err := repo.FindDeliveredBefore(ctx, now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, delivered.ID, due[0].ID)

	pending := enums.OrderStatusPending
	listed, err := repo.ListByVendor(ctx, vendorID, &pending, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}
