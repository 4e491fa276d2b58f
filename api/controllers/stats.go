package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/responses"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/validators"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/stats"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

const statDateLayout = "2006-01-02"

type rollupRequest struct {
	TenantID string `json:"tenant_id" validate:"required,uuid"`
	Platform string `json:"platform" validate:"required,oneof=meta tiktok google"`
	Date     string `json:"date" validate:"required"`
}

// TriggerRollup recomputes one tenant/platform/day stat row. Recomputation
// replaces the row, so running it twice for the same day is safe.
func TriggerRollup(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		var req rollupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id"))
			return
		}
		platform, err := enums.ParsePlatform(req.Platform)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}
		day, err := time.Parse(statDateLayout, req.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD"))
			return
		}

		stat, err := svc.Rollup(r.Context(), tenantID, platform, day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stat)
	}
}

// ListStats returns daily stat rows for a tenant over an inclusive date range.
func ListStats(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		tenantID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("tenant_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id"))
			return
		}

		var platform *enums.Platform
		if raw := strings.TrimSpace(r.URL.Query().Get("platform")); raw != "" {
			parsed, err := enums.ParsePlatform(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
				return
			}
			platform = &parsed
		}

		from, err := parseDateQuery(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := parseDateQuery(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if to.Before(from) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "to must not precede from"))
			return
		}

		rows, err := svc.List(r.Context(), tenantID, platform, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"stats": rows})
	}
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, key+" date is required").
			WithDetails(map[string]any{"field": key})
	}
	day, err := time.Parse(statDateLayout, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be YYYY-MM-DD")
	}
	return day, nil
}
