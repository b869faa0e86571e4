package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/buildmart-backend/api/responses"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BuildMart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings Postgres and Redis; either failing reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BuildMart-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed *pkgerrors.Error
		if err := ping(ctx, dbPinger); err != nil {
			checks["database"] = "unavailable"
			failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready")
		}
		if err := ping(ctx, redisPinger); err != nil {
			checks["redis"] = "unavailable"
			if failed == nil {
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready")
			}
		}
		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

func ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "dependency not configured")
	}
	return p.Ping(ctx)
}
