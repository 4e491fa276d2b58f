package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/responses"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/validators"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/ingest"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

type submitEventRequest struct {
	TenantID       string            `json:"tenant_id" validate:"required,uuid"`
	Platforms      []string          `json:"platforms" validate:"required,min=1,dive,oneof=meta tiktok google"`
	EventName      string            `json:"event_name" validate:"required"`
	EventID        string            `json:"event_id" validate:"required"`
	EventTime      time.Time         `json:"event_time" validate:"required"`
	IdentityFields map[string]string `json:"identity_fields"`
	CustomData     map[string]any    `json:"custom_data"`
}

// SubmitEvent accepts one conversion event and fans it out per platform.
// Acceptance only means the event was normalized and routed; delivery
// outcomes are visible through the logs and the DLQ.
func SubmitEvent(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		var req submitEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id"))
			return
		}

		receipt, err := svc.Submit(r.Context(), conversion.RawEvent{
			TenantID:       tenantID,
			Platforms:      req.Platforms,
			EventName:      req.EventName,
			EventID:        req.EventID,
			EventTime:      req.EventTime,
			IdentityFields: req.IdentityFields,
			CustomData:     req.CustomData,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, receipt)
	}
}
