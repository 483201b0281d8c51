package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/orderflow/orderflow-backend/api/responses"
	"github.com/orderflow/orderflow-backend/pkg/config"
	pkgerrors "github.com/orderflow/orderflow-backend/pkg/errors"
	"github.com/orderflow/orderflow-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OrderFlow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the backing stores. Redis is reported but not fatal;
// the API degrades to direct database reads without it.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OrderFlow-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}

		cacheStatus := "ok"
		if redisP == nil {
			cacheStatus = "disabled"
		} else if err := redisP.Ping(ctx); err != nil {
			cacheStatus = "unreachable"
			if logg != nil {
				logg.Warn(r.Context(), "redis readiness check failed")
			}
		}

		responses.WriteSuccess(w, map[string]string{
			"status": "ready",
			"db":     "ok",
			"cache":  cacheStatus,
		})
	}
}
