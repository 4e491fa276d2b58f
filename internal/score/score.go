package score

import (
	"encoding/json"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/identity"
)

// MaxScore caps the total match quality score.
const MaxScore = 100

// Weights assigns a point value to each identity signal. IP and user agent
// score only as a pair.
type Weights struct {
	Email           int `json:"email"`
	Phone           int `json:"phone"`
	ExternalID      int `json:"external_id"`
	ClickID         int `json:"click_id"`
	BrowserID       int `json:"browser_id"`
	IPUserAgentPair int `json:"ip_user_agent_pair"`
	Name            int `json:"name"`
	Geo             int `json:"geo"`
}

// DefaultWeights is the stock weight table applied when a tenant has no
// overrides configured.
func DefaultWeights() Weights {
	return Weights{
		Email:           25,
		Phone:           20,
		ExternalID:      20,
		ClickID:         15,
		BrowserID:       10,
		IPUserAgentPair: 10,
		Name:            3,
		Geo:             2,
	}
}

// ApplyOverrides merges a tenant's stored weight override document onto the
// defaults. Unknown keys are ignored; absent keys keep their default value.
func ApplyOverrides(base Weights, overrides json.RawMessage) (Weights, error) {
	if len(overrides) == 0 {
		return base, nil
	}
	merged := base
	if err := json.Unmarshal(overrides, &merged); err != nil {
		return base, err
	}
	return merged, nil
}

// Breakdown lists the signals that contributed and their point values.
type Breakdown map[string]int

// Score computes the total match quality for the presence flags under the
// given weight table. It is pure: the same inputs always yield the same
// total and breakdown.
func Score(flags identity.PresenceFlags, weights Weights) (int, Breakdown) {
	breakdown := Breakdown{}

	if flags.HasEmail {
		breakdown["email"] = weights.Email
	}
	if flags.HasPhone {
		breakdown["phone"] = weights.Phone
	}
	if flags.HasExternalID {
		breakdown["external_id"] = weights.ExternalID
	}
	if flags.HasClickID {
		breakdown["click_id"] = weights.ClickID
	}
	if flags.HasBrowserID {
		breakdown["browser_id"] = weights.BrowserID
	}
	// One without the other contributes nothing.
	if flags.HasIP && flags.HasUserAgent {
		breakdown["ip_user_agent_pair"] = weights.IPUserAgentPair
	}
	if flags.HasName {
		breakdown["name"] = weights.Name
	}
	if flags.HasGeo {
		breakdown["geo"] = weights.Geo
	}

	total := 0
	for _, points := range breakdown {
		total += points
	}
	if total > MaxScore {
		total = MaxScore
	}
	return total, breakdown
}
