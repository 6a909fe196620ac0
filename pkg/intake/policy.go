package intake

import "time"

// AccessPolicy is the default policy bundle bound to a risk tier. Caller
// overrides win field-by-field at intake time.
type AccessPolicy struct {
	Roles                  []string      `json:"roles"`
	MaxViewsPerRecipient    int           `json:"maxViewsPerRecipient"` // 0 = unbounded
	Expiry                  time.Duration `json:"expiry"`
	OTPRequired             bool          `json:"otpRequired"`
	DeviceBindingRequired   bool          `json:"deviceBindingRequired"`
	GeoAllowlist            []string      `json:"geoAllowlist,omitempty"`
	ReauthInterval          time.Duration `json:"reauthInterval"`
	ConfidentialityNotice   string        `json:"confidentialityNotice"`
	AllowedEntities         []string      `json:"allowedEntities,omitempty"`
	IPAllowlist             []string      `json:"ipAllowlist,omitempty"`
}

var confidentialityNotices = map[RiskTier]string{
	RiskLow:      "Internal use. Do not distribute outside the organization without authorization.",
	RiskHigh:     "Confidential. Access is logged and limited to authorized roles.",
	RiskCritical: "Strictly confidential. Access requires OTP and device verification; every view is forensically watermarked.",
}

// DefaultPolicy returns the tier-driven AccessPolicy before caller
// overrides are applied.
func DefaultPolicy(tier RiskTier) AccessPolicy {
	switch tier {
	case RiskHigh:
		return AccessPolicy{
			Roles:                 []string{"admin", "operator"},
			MaxViewsPerRecipient:  25,
			Expiry:                168 * time.Hour,
			OTPRequired:           true,
			DeviceBindingRequired: false,
			ReauthInterval:        30 * time.Minute,
			ConfidentialityNotice: confidentialityNotices[RiskHigh],
		}
	case RiskCritical:
		return AccessPolicy{
			Roles:                 []string{"admin"},
			MaxViewsPerRecipient:  10,
			Expiry:                24 * time.Hour,
			OTPRequired:           true,
			DeviceBindingRequired: true,
			GeoAllowlist:          []string{"US"},
			ReauthInterval:        15 * time.Minute,
			ConfidentialityNotice: confidentialityNotices[RiskCritical],
		}
	default: // RiskLow and unrecognized tiers fall back to the most permissive bundle
		return AccessPolicy{
			Roles:                 []string{"admin", "operator", "viewer"},
			MaxViewsPerRecipient:  100,
			Expiry:                720 * time.Hour,
			OTPRequired:           false,
			DeviceBindingRequired: false,
			ReauthInterval:        60 * time.Minute,
			ConfidentialityNotice: confidentialityNotices[RiskLow],
		}
	}
}

// MergeOverride applies caller-supplied field overrides onto the default
// policy, field by field — only non-zero-value fields in override win.
func MergeOverride(base AccessPolicy, override AccessPolicy) AccessPolicy {
	out := base
	if len(override.Roles) > 0 {
		out.Roles = override.Roles
	}
	if override.MaxViewsPerRecipient != 0 {
		out.MaxViewsPerRecipient = override.MaxViewsPerRecipient
	}
	if override.Expiry != 0 {
		out.Expiry = override.Expiry
	}
	if override.OTPRequired {
		out.OTPRequired = true
	}
	if override.DeviceBindingRequired {
		out.DeviceBindingRequired = true
	}
	if len(override.GeoAllowlist) > 0 {
		out.GeoAllowlist = override.GeoAllowlist
	}
	if override.ReauthInterval != 0 {
		out.ReauthInterval = override.ReauthInterval
	}
	if override.ConfidentialityNotice != "" {
		out.ConfidentialityNotice = override.ConfidentialityNotice
	}
	if len(override.AllowedEntities) > 0 {
		out.AllowedEntities = override.AllowedEntities
	}
	if len(override.IPAllowlist) > 0 {
		out.IPAllowlist = override.IPAllowlist
	}
	return out
}
