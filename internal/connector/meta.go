package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/conversion"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/identity"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
)

// metaFieldMap translates canonical identity fields to Conversions API
// user_data keys.
var metaFieldMap = map[string]string{
	identity.FieldEmail:      "em",
	identity.FieldPhone:      "ph",
	identity.FieldExternalID: "external_id",
	identity.FieldFirstName:  "fn",
	identity.FieldLastName:   "ln",
	identity.FieldCity:       "ct",
	identity.FieldState:      "st",
	identity.FieldZip:        "zp",
	identity.FieldCountry:    "country",
	identity.FieldClickID:    "fbc",
	identity.FieldBrowserID:  "fbp",
	identity.FieldIP:         "client_ip_address",
	identity.FieldUserAgent:  "client_user_agent",
}

// MetaConnector delivers events to the Meta Conversions API.
type MetaConnector struct {
	cfg    config.MetaConnectorConfig
	client Doer
}

// NewMetaConnector validates credentials and builds the connector.
func NewMetaConnector(cfg config.MetaConnectorConfig, client Doer) (*MetaConnector, error) {
	if cfg.PixelID == "" || cfg.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "meta pixel id and access token are required")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "http client is required")
	}
	return &MetaConnector{cfg: cfg, client: client}, nil
}

// Platform identifies this connector.
func (c *MetaConnector) Platform() enums.Platform {
	return enums.PlatformMeta
}

type metaEventPayload struct {
	Data []metaEvent `json:"data"`
}

type metaEvent struct {
	EventName    string            `json:"event_name"`
	EventTime    int64             `json:"event_time"`
	EventID      string            `json:"event_id"`
	ActionSource string            `json:"action_source"`
	UserData     map[string]string `json:"user_data"`
	CustomData   map[string]any    `json:"custom_data,omitempty"`
}

type metaResponse struct {
	EventsReceived int    `json:"events_received"`
	FBTraceID      string `json:"fbtrace_id"`
	Error          *struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// Deliver posts the event to the pixel's events endpoint and classifies the
// response.
func (c *MetaConnector) Deliver(ctx context.Context, event conversion.NormalizedEvent) Result {
	payload := metaEventPayload{Data: []metaEvent{c.mapEvent(event)}}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{
			Success:     false,
			ErrorCode:   "encode_payload",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PixelID, url.QueryEscape(c.cfg.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{
			Success:     false,
			ErrorCode:   "build_request",
			Category:    enums.ErrorCategoryPermanent,
			RawResponse: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transportResult(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var parsed metaResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.Error == nil {
		return Result{
			Success:         true,
			PlatformTraceID: parsed.FBTraceID,
			StatusCode:      resp.StatusCode,
			RawResponse:     string(raw),
		}
	}

	result := Result{
		Success:     false,
		StatusCode:  resp.StatusCode,
		Category:    classifyStatus(resp.StatusCode),
		RawResponse: string(raw),
	}
	if parsed.Error != nil {
		result.ErrorCode = strconv.Itoa(parsed.Error.Code)
		result.PlatformTraceID = parsed.Error.FBTraceID
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// Graph can reject the payload inside an HTTP success; the error
			// code, not the status, carries the real verdict.
			result.Category = classifyMetaCode(parsed.Error.Code)
		}
	}
	return result
}

// Graph API error codes: 190/102 are token problems, 4/17/32/613 are
// throttling, anything else in a 2xx body is a payload rejection.
func classifyMetaCode(code int) enums.ErrorCategory {
	switch code {
	case 190, 102:
		return enums.ErrorCategoryAuth
	case 4, 17, 32, 613:
		return enums.ErrorCategoryRateLimited
	default:
		return enums.ErrorCategoryPermanent
	}
}

func (c *MetaConnector) mapEvent(event conversion.NormalizedEvent) metaEvent {
	userData := map[string]string{}
	for field, hash := range event.Identity.Hashed {
		if key, ok := metaFieldMap[field]; ok {
			userData[key] = hash
		}
	}
	for field, value := range event.Identity.Plain {
		if key, ok := metaFieldMap[field]; ok {
			userData[key] = value
		}
	}

	customData := map[string]any{
		"value":    event.Value.InexactFloat64(),
		"currency": event.Currency.String(),
	}

	return metaEvent{
		EventName:    event.EventName,
		EventTime:    event.EventTime.Unix(),
		EventID:      event.EventID,
		ActionSource: "website",
		UserData:     userData,
		CustomData:   customData,
	}
}
