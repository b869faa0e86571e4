package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/internal/settlements"
	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

type stubSweeper struct {
	expireLimit   int
	completeLimit int
	completeErr   error
}

func (s *stubSweeper) ExpireOffers(ctx context.Context, limit int) (orders.SweepResult, error) {
	s.expireLimit = limit
	return orders.SweepResult{Processed: 3, Skipped: 1}, nil
}

func (s *stubSweeper) AutoComplete(ctx context.Context, limit int) (orders.SweepResult, error) {
	s.completeLimit = limit
	return orders.SweepResult{Processed: 1}, s.completeErr
}

func TestOrderSweepJobsDelegateToOrders(t *testing.T) {
	sweeper := &stubSweeper{completeErr: errors.New("db down")}
	expiry, err := NewOfferExpiryJob(OrderSweepJobParams{Logger: logger.Nop(), Orders: sweeper})
	if err != nil {
		t.Fatalf("NewOfferExpiryJob: %v", err)
	}
	complete, err := NewOrderAutoCompleteJob(OrderSweepJobParams{Logger: logger.Nop(), Orders: sweeper, BatchSize: 25})
	if err != nil {
		t.Fatalf("NewOrderAutoCompleteJob: %v", err)
	}

	if expiry.Name() != "offer-expiry" || complete.Name() != "order-auto-complete" {
		t.Fatalf("unexpected job names %q %q", expiry.Name(), complete.Name())
	}
	if err := expiry.Run(context.Background()); err != nil {
		t.Fatalf("expiry run: %v", err)
	}
	if sweeper.expireLimit != defaultSweepBatch {
		t.Fatalf("expected default batch, got %d", sweeper.expireLimit)
	}
	if err := complete.Run(context.Background()); err == nil {
		t.Fatalf("expected auto-complete error to propagate")
	}
	if sweeper.completeLimit != 25 {
		t.Fatalf("expected batch 25, got %d", sweeper.completeLimit)
	}
}

func TestOrderSweepJobRequiresOrders(t *testing.T) {
	if _, err := NewOfferExpiryJob(OrderSweepJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected error without orders service")
	}
}

type stubBatcher struct {
	input settlements.BatchInput
	out   []models.Settlement
	err   error
}

func (s *stubBatcher) RunBatch(ctx context.Context, input settlements.BatchInput) ([]models.Settlement, error) {
	s.input = input
	return s.out, s.err
}

func TestSettlementJobRunsBatchAsOfNow(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 5, 0, 0, time.UTC)
	batcher := &stubBatcher{out: []models.Settlement{
		{ID: uuid.New(), NetAmount: decimal.RequireFromString("1200"), OrderCount: 2},
		{ID: uuid.New(), NetAmount: decimal.RequireFromString("300.50"), OrderCount: 1},
	}}
	job, err := NewSettlementJob(SettlementJobParams{Logger: logger.Nop(), Settlements: batcher, Clock: clock.NewFake(now)})
	if err != nil {
		t.Fatalf("NewSettlementJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !batcher.input.AsOf.Equal(now) || batcher.input.VendorID != nil {
		t.Fatalf("unexpected batch input %+v", batcher.input)
	}

	batcher.err = errors.New("vendor failed")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected batch error to propagate")
	}
}
