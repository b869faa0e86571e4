package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

const defaultSweepBatch = 200

type orderSweeper interface {
	ExpireOffers(ctx context.Context, limit int) (orders.SweepResult, error)
	AutoComplete(ctx context.Context, limit int) (orders.SweepResult, error)
}

// OrderSweepJobParams configure the offer-expiry and auto-complete jobs.
type OrderSweepJobParams struct {
	Logger    *logger.Logger
	Orders    orderSweeper
	BatchSize int
}

type sweepFunc func(ctx context.Context, limit int) (orders.SweepResult, error)

type orderSweepJob struct {
	name  string
	logg  *logger.Logger
	sweep sweepFunc
	batch int
}

// NewOfferExpiryJob rejects pending offers whose response window has passed.
func NewOfferExpiryJob(params OrderSweepJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &orderSweepJob{
		name:  "offer-expiry",
		logg:  params.Logger,
		sweep: params.Orders.ExpireOffers,
		batch: params.batchSize(),
	}, nil
}

// NewOrderAutoCompleteJob completes delivered orders the buyer never confirmed.
func NewOrderAutoCompleteJob(params OrderSweepJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &orderSweepJob{
		name:  "order-auto-complete",
		logg:  params.Logger,
		sweep: params.Orders.AutoComplete,
		batch: params.batchSize(),
	}, nil
}

func (p OrderSweepJobParams) validate() error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if p.Orders == nil {
		return fmt.Errorf("orders service required")
	}
	return nil
}

func (p OrderSweepJobParams) batchSize() int {
	if p.BatchSize <= 0 {
		return defaultSweepBatch
	}
	return p.BatchSize
}

func (j *orderSweepJob) Name() string { return j.name }

func (j *orderSweepJob) Run(ctx context.Context) error {
	result, err := j.sweep(ctx, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"skipped":   result.Skipped,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(logCtx, "order sweep complete")
	return nil
}
