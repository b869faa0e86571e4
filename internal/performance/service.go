package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

// Service scores vendors over a trailing window.
type Service interface {
	VendorScore(ctx context.Context, vendorID uuid.UUID) (*Score, error)
}

// ServiceParams groups the collaborators of the performance service.
type ServiceParams struct {
	Repo   Repository
	Clock  clock.Clock
	Config config.PerformanceConfig
	Logger *logger.Logger
}

type service struct {
	repo         Repository
	clock        clock.Clock
	window       time.Duration
	minCompleted int
	logg         *logger.Logger
}

// NewService builds the performance service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("performance repository required")
	}
	if params.Config.Window <= 0 {
		return nil, fmt.Errorf("performance window must be positive")
	}
	if params.Clock == nil {
		params.Clock = clock.Real()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:         params.Repo,
		clock:        params.Clock,
		window:       params.Config.Window,
		minCompleted: params.Config.MinCompletedOrders,
		logg:         params.Logger,
	}, nil
}

func (s *service) VendorScore(ctx context.Context, vendorID uuid.UUID) (*Score, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	to := s.clock.Now()
	from := to.Add(-s.window)

	stats, err := s.repo.Stats(ctx, vendorID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor stats")
	}
	score := Compute(stats, s.minCompleted)
	score.VendorID = vendorID
	score.WindowStart = from
	score.WindowEnd = to

	logCtx := s.logg.WithField(ctx, "vendor_id", vendorID.String())
	s.logg.Debug(logCtx, "vendor score computed")
	return &score, nil
}
