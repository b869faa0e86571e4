package orders

import (
	"context"
	"fmt"
	"time"
)

const (
	orderNumberPrefix = "BM"
	// counters outlive their month so late retries never restart a sequence
	orderNumberCounterTTL = 62 * 24 * time.Hour
)

type sequencer interface {
	NextSequence(ctx context.Context, name string, ttl time.Duration) (int64, error)
}

type redisNumberGenerator struct {
	counter sequencer
}

// NewNumberGenerator issues BM-YYYYMM-NNNNNN numbers from a Redis counter per month.
func NewNumberGenerator(counter sequencer) (NumberGenerator, error) {
	if counter == nil {
		return nil, fmt.Errorf("sequence counter required")
	}
	return &redisNumberGenerator{counter: counter}, nil
}

func (g *redisNumberGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	period := at.UTC().Format("200601")
	seq, err := g.counter.NextSequence(ctx, "order_number:"+period, orderNumberCounterTTL)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return FormatOrderNumber(period, seq), nil
}

// FormatOrderNumber renders the order number for a YYYYMM period.
func FormatOrderNumber(period string, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", orderNumberPrefix, period, seq)
}
