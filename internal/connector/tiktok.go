package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/identity"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

const tiktokTrackPath = "/open_api/v1.3/event/track/"

// TikTok business error codes that indicate credential problems.
var tiktokAuthCodes = map[int]bool{
	40001: true,
	40102: true,
	40104: true,
}

// TikTokConnector delivers events to the TikTok Events API.
type TikTokConnector struct {
	cfg    config.TikTokConnectorConfig
	client Doer
}

// NewTikTokConnector validates credentials and builds the connector.
func NewTikTokConnector(cfg config.TikTokConnectorConfig, client Doer) (*TikTokConnector, error) {
	if cfg.PixelCode == "" || cfg.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tiktok pixel code and access token are required")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "http client is required")
	}
	return &TikTokConnector{cfg: cfg, client: client}, nil
}

// Platform identifies this connector.
func (c *TikTokConnector) Platform() enums.Platform {
	return enums.PlatformTikTok
}

type tiktokPayload struct {
	EventSource   string        `json:"event_source"`
	EventSourceID string        `json:"event_source_id"`
	Data          []tiktokEvent `json:"data"`
}

type tiktokEvent struct {
	Event      string         `json:"event"`
	EventTime  int64          `json:"event_time"`
	EventID    string         `json:"event_id"`
	User       map[string]any `json:"user"`
	Properties map[string]any `json:"properties,omitempty"`
}

type tiktokResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Deliver posts the event to the track endpoint. TikTok signals business
// errors with a non-zero code inside an HTTP 200, so both layers are
// classified.
func (c *TikTokConnector) Deliver(ctx context.Context, event conversion.NormalizedEvent) Result {
	payload := tiktokPayload{
		EventSource:   "web",
		EventSourceID: c.cfg.PixelCode,
		Data:          []tiktokEvent{c.mapEvent(event)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{
			Success:     false,
			ErrorCode:   "encode_payload",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tiktokTrackPath, bytes.NewReader(body))
	if err != nil {
		return Result{
			Success:     false,
			ErrorCode:   "build_request",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Access-Token", c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return transportResult(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var parsed tiktokResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.Code == 0 {
		return Result{
			Success:         true,
			PlatformTraceID: parsed.RequestID,
			StatusCode:      resp.StatusCode,
			RawResponse:     string(raw),
		}
	}

	result := Result{
		Success:         false,
		StatusCode:      resp.StatusCode,
		PlatformTraceID: parsed.RequestID,
		RawResponse:     string(raw),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// HTTP success with a business error code.
		result.ErrorCode = strconv.Itoa(parsed.Code)
		result.Category = classifyTikTokCode(parsed.Code)
	} else {
		result.ErrorCode = strconv.Itoa(parsed.Code)
		result.Category = classifyStatus(resp.StatusCode)
	}
	return result
}

func classifyTikTokCode(code int) enums.ErrorCategory {
	switch {
	case tiktokAuthCodes[code]:
		return enums.ErrorCategoryAuth
	case code >= 50000:
		return enums.ErrorCategoryTransient
	default:
		return enums.ErrorCategoryPermanent
	}
}

func (c *TikTokConnector) mapEvent(event conversion.NormalizedEvent) tiktokEvent {
	user := map[string]any{}
	if hash, ok := event.Identity.Hashed[identity.FieldEmail]; ok {
		user["email"] = hash
	}
	if hash, ok := event.Identity.Hashed[identity.FieldPhone]; ok {
		user["phone"] = hash
	}
	if hash, ok := event.Identity.Hashed[identity.FieldExternalID]; ok {
		user["external_id"] = hash
	}
	if value, ok := event.Identity.Plain[identity.FieldClickID]; ok {
		user["ttclid"] = value
	}
	if value, ok := event.Identity.Plain[identity.FieldIP]; ok {
		user["ip"] = value
	}
	if value, ok := event.Identity.Plain[identity.FieldUserAgent]; ok {
		user["user_agent"] = value
	}

	properties := map[string]any{
		"value":    event.Value.InexactFloat64(),
		"currency": event.Currency.String(),
	}

	return tiktokEvent{
		Event:      event.EventName,
		EventTime:  event.EventTime.Unix(),
		EventID:    event.EventID,
		User:       user,
		Properties: properties,
	}
}
