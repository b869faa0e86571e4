package performance

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/enums"
)

const (
	acceptanceWeight = 0.3
	onTimeWeight     = 0.4
	responseWeight   = 0.3

	minResponseScore = 40
)

// Stats are the raw counts read for one vendor over a window.
type Stats struct {
	CompletedOrders  int
	AcceptedOffers   int
	RejectedOffers   int
	ExpiredOffers    int
	DeliveredOrders  int
	OnTimeDeliveries int
	ResponseTimes    []time.Duration
	OpenIssues       int64
	OpenDisputes     int64
}

// Score is a vendor's performance summary. Overall and Band stay nil until
// the vendor has enough completed orders in the window.
type Score struct {
	VendorID         uuid.UUID         `json:"vendor_id"`
	WindowStart      time.Time         `json:"window_start"`
	WindowEnd        time.Time         `json:"window_end"`
	CompletedOrders  int               `json:"completed_orders"`
	AcceptedOffers   int               `json:"accepted_offers"`
	RejectedOffers   int               `json:"rejected_offers"`
	ExpiredOffers    int               `json:"expired_offers"`
	AcceptanceRate   float64           `json:"acceptance_rate"`
	DeliveredOrders  int               `json:"delivered_orders"`
	OnTimeDeliveries int               `json:"on_time_deliveries"`
	OnTimeRate       float64           `json:"on_time_rate"`
	AverageResponse  time.Duration     `json:"average_response_ns"`
	ResponseScore    int               `json:"response_score"`
	Overall          *int              `json:"overall,omitempty"`
	Band             *enums.RatingBand `json:"band,omitempty"`
	OpenIssues       int64             `json:"open_issues"`
	OpenDisputes     int64             `json:"open_disputes"`
	Message          string            `json:"message,omitempty"`
}

// Compute turns window stats into a score.
func Compute(stats Stats, minCompleted int) Score {
	score := Score{
		CompletedOrders:  stats.CompletedOrders,
		AcceptedOffers:   stats.AcceptedOffers,
		RejectedOffers:   stats.RejectedOffers,
		ExpiredOffers:    stats.ExpiredOffers,
		AcceptanceRate:   percent(stats.AcceptedOffers, stats.AcceptedOffers+stats.RejectedOffers+stats.ExpiredOffers),
		DeliveredOrders:  stats.DeliveredOrders,
		OnTimeDeliveries: stats.OnTimeDeliveries,
		OnTimeRate:       percent(stats.OnTimeDeliveries, stats.DeliveredOrders),
		AverageResponse:  average(stats.ResponseTimes),
		OpenIssues:       stats.OpenIssues,
		OpenDisputes:     stats.OpenDisputes,
	}
	score.ResponseScore = ResponseScore(score.AverageResponse)
	if len(stats.ResponseTimes) == 0 {
		score.ResponseScore = minResponseScore
	}

	if stats.CompletedOrders < minCompleted {
		score.Message = fmt.Sprintf("score available after %d completed orders (%d so far)", minCompleted, stats.CompletedOrders)
		return score
	}

	overall := int(math.Round(acceptanceWeight*score.AcceptanceRate + onTimeWeight*score.OnTimeRate + responseWeight*float64(score.ResponseScore)))
	band := BandFor(overall)
	score.Overall = &overall
	score.Band = &band
	return score
}

// ResponseScore buckets the average time a vendor takes to answer an offer.
func ResponseScore(avg time.Duration) int {
	switch {
	case avg < 5*time.Minute:
		return 100
	case avg < 10*time.Minute:
		return 80
	case avg < 15*time.Minute:
		return 60
	default:
		return minResponseScore
	}
}

// BandFor maps an overall score onto a rating band.
func BandFor(overall int) enums.RatingBand {
	switch {
	case overall >= 90:
		return enums.RatingBandExcellent
	case overall >= 75:
		return enums.RatingBandGood
	case overall >= 60:
		return enums.RatingBandFair
	default:
		return enums.RatingBandPoor
	}
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

func average(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range values {
		total += v
	}
	return total / time.Duration(len(values))
}
