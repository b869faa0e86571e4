package cron

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/internal/settlements"
	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

type settlementBatcher interface {
	RunBatch(ctx context.Context, input settlements.BatchInput) ([]models.Settlement, error)
}

// SettlementJobParams configure the settlement batch job.
type SettlementJobParams struct {
	Logger      *logger.Logger
	Settlements settlementBatcher
	Clock       clock.Clock
}

// NewSettlementJob batches completed payouts for the latest closed cycle.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Clock == nil {
		params.Clock = clock.Real()
	}
	return &settlementJob{
		logg:        params.Logger,
		settlements: params.Settlements,
		clock:       params.Clock,
	}, nil
}

type settlementJob struct {
	logg        *logger.Logger
	settlements settlementBatcher
	clock       clock.Clock
}

func (j *settlementJob) Name() string { return "settlement-batch" }

func (j *settlementJob) Run(ctx context.Context) error {
	created, err := j.settlements.RunBatch(ctx, settlements.BatchInput{AsOf: j.clock.Now()})

	net := decimal.Zero
	orderCount := 0
	for _, settlement := range created {
		net = net.Add(settlement.NetAmount)
		orderCount += settlement.OrderCount
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"settlements": len(created),
		"orders":      orderCount,
		"net_amount":  net.StringFixed(2),
	})
	j.logg.Info(logCtx, "settlement batch job finished")
	if err != nil {
		return fmt.Errorf("settlement batch: %w", err)
	}
	return nil
}
