package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/responses"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/validators"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/deadletter"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/pagination"
)

// ListDeadLetters returns the pending queue for a tenant, newest first.
func ListDeadLetters(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
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

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := svc.ListPending(r.Context(), tenantID, platform, cursor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ReprocessDeadLetter replays one entry through its platform connector.
func ReprocessDeadLetter(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}

		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reprocess(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"recovered":         result.Success,
			"error_category":    result.Category,
			"error_code":        result.ErrorCode,
			"platform_trace_id": result.PlatformTraceID,
		})
	}
}

// AbandonDeadLetter marks one entry as permanently given up on.
func AbandonDeadLetter(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}

		entryID, err := parseEntryID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Abandon(r.Context(), entryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "abandoned"})
	}
}

func parseEntryID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "entryId"))
	entryID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry id")
	}
	return entryID, nil
}
