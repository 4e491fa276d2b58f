package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Canonical field names produced by the normalizer. Connectors key off these
// when building platform payloads.
const (
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldExternalID = "external_id"
	FieldClickID    = "click_id"
	FieldBrowserID  = "browser_id"
	FieldIP         = "ip"
	FieldUserAgent  = "user_agent"
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldCity       = "city"
	FieldState      = "state"
	FieldZip        = "zip"
	FieldCountry    = "country"
)

var (
	emailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	hashedRe = regexp.MustCompile(`^[0-9a-f]{64}$`)
	digitRe  = regexp.MustCompile(`\D`)
)

// keyAliases maps accepted inbound field names to canonical fields. Unknown
// keys fall back to value-shape classification.
var keyAliases = map[string]string{
	"email":             FieldEmail,
	"em":                FieldEmail,
	"phone":             FieldPhone,
	"ph":                FieldPhone,
	"phone_number":      FieldPhone,
	"external_id":       FieldExternalID,
	"externalid":        FieldExternalID,
	"click_id":          FieldClickID,
	"fbc":               FieldClickID,
	"gclid":             FieldClickID,
	"ttclid":            FieldClickID,
	"browser_id":        FieldBrowserID,
	"fbp":               FieldBrowserID,
	"ip":                FieldIP,
	"ip_address":        FieldIP,
	"client_ip_address": FieldIP,
	"user_agent":        FieldUserAgent,
	"client_user_agent": FieldUserAgent,
	"first_name":        FieldFirstName,
	"fn":                FieldFirstName,
	"last_name":         FieldLastName,
	"ln":                FieldLastName,
	"city":              FieldCity,
	"ct":                FieldCity,
	"state":             FieldState,
	"st":                FieldState,
	"zip":               FieldZip,
	"zp":                FieldZip,
	"zip_code":          FieldZip,
	"country":           FieldCountry,
}

// hashedFields are one-way hashed before the value leaves the process.
// Click identifiers, IP, and user agent are sent as-is per platform contracts.
var hashedFields = map[string]bool{
	FieldEmail:      true,
	FieldPhone:      true,
	FieldExternalID: true,
	FieldFirstName:  true,
	FieldLastName:   true,
	FieldCity:       true,
	FieldState:      true,
	FieldZip:        true,
	FieldCountry:    true,
}

// PresenceFlags captures which identity signals carried a plausibly valid
// value before hashing. The scorer consumes these, never the hashes.
type PresenceFlags struct {
	HasEmail      bool `json:"has_email"`
	HasPhone      bool `json:"has_phone"`
	HasExternalID bool `json:"has_external_id"`
	HasClickID    bool `json:"has_click_id"`
	HasBrowserID  bool `json:"has_browser_id"`
	HasIP         bool `json:"has_ip"`
	HasUserAgent  bool `json:"has_user_agent"`
	HasName       bool `json:"has_name"`
	HasGeo        bool `json:"has_geo"`
}

// Profile is the normalizer output: hashed identity fields, plain passthrough
// fields, and the pre-hash presence flags.
type Profile struct {
	Hashed map[string]string `json:"hashed"`
	Plain  map[string]string `json:"plain"`
	Flags  PresenceFlags     `json:"flags"`
}

// Normalize classifies each raw field, applies type-specific normalization,
// and hashes the fields that must not leave the process in clear text. Values
// already in hashed form (64 lowercase hex chars) pass through unchanged.
func Normalize(raw map[string]string) Profile {
	p := Profile{
		Hashed: map[string]string{},
		Plain:  map[string]string{},
	}

	for key, value := range raw {
		field := classify(key, value)
		if field == "" {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}

		if IsHashed(trimmed) && hashedFields[field] {
			// Already-hashed inputs register presence but are never re-hashed.
			p.Hashed[field] = strings.ToLower(trimmed)
			markPresent(&p.Flags, field)
			continue
		}

		normalized := normalizeValue(field, trimmed)
		if normalized == "" {
			continue
		}
		if !plausible(field, normalized) {
			continue
		}
		markPresent(&p.Flags, field)

		if hashedFields[field] {
			p.Hashed[field] = HashValue(normalized)
		} else {
			p.Plain[field] = normalized
		}
	}

	return p
}

// IsHashed reports whether the value already looks like a hex digest of the
// expected width.
func IsHashed(value string) bool {
	return hashedRe.MatchString(strings.ToLower(strings.TrimSpace(value)))
}

// HashValue computes the hex-encoded SHA-256 digest of the value.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func classify(key, value string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if field, ok := keyAliases[k]; ok {
		return field
	}

	// Unknown key: fall back to the value's shape.
	v := strings.TrimSpace(value)
	switch {
	case emailRe.MatchString(strings.ToLower(v)):
		return FieldEmail
	case len(digitRe.ReplaceAllString(v, "")) >= 7 && len(digitRe.ReplaceAllString(v, "")) == len(strings.Map(dropPhonePunct, v)):
		return FieldPhone
	default:
		return ""
	}
}

func dropPhonePunct(r rune) rune {
	switch r {
	case ' ', '(', ')', '-', '+', '.':
		return -1
	}
	return r
}

func normalizeValue(field, value string) string {
	switch field {
	case FieldEmail:
		return strings.ToLower(strings.TrimSpace(value))
	case FieldPhone:
		return digitRe.ReplaceAllString(value, "")
	case FieldFirstName, FieldLastName, FieldCity, FieldState, FieldCountry:
		return strings.ToLower(strings.TrimSpace(value))
	case FieldZip:
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	default:
		return strings.TrimSpace(value)
	}
}

// plausible decides presence: a value counts only when it looks like a valid
// instance of its field type, not merely a non-empty string.
func plausible(field, normalized string) bool {
	switch field {
	case FieldEmail:
		return emailRe.MatchString(normalized)
	case FieldPhone:
		return len(normalized) >= 7 && len(normalized) <= 15
	default:
		return normalized != ""
	}
}

func markPresent(flags *PresenceFlags, field string) {
	switch field {
	case FieldEmail:
		flags.HasEmail = true
	case FieldPhone:
		flags.HasPhone = true
	case FieldExternalID:
		flags.HasExternalID = true
	case FieldClickID:
		flags.HasClickID = true
	case FieldBrowserID:
		flags.HasBrowserID = true
	case FieldIP:
		flags.HasIP = true
	case FieldUserAgent:
		flags.HasUserAgent = true
	case FieldFirstName, FieldLastName:
		flags.HasName = true
	case FieldCity, FieldState, FieldZip, FieldCountry:
		flags.HasGeo = true
	}
}

// PrimaryHash returns the strongest available identity hash for composite
// dedupe keys: email, then phone, then external id.
func (p Profile) PrimaryHash() string {
	for _, field := range []string{FieldEmail, FieldPhone, FieldExternalID} {
		if h, ok := p.Hashed[field]; ok {
			return h
		}
	}
	return ""
}
