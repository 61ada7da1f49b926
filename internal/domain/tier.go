package domain

import "time"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

type Capability string

const (
	CapUnlimitedCrushes  Capability = "unlimited_crushes"
	CapImageMessages     Capability = "image_messages"
	CapSeeInboundCrushes Capability = "see_inbound_crushes"
)

// Capabilities is what a tier unlocks. DailyMessageLimit 0 means no cap.
type Capabilities struct {
	UnlimitedCrushes  bool `json:"unlimited_crushes"`
	ImageMessages     bool `json:"image_messages"`
	SeeInboundCrushes bool `json:"see_inbound_crushes"`
	DailyMessageLimit int  `json:"daily_message_limit"`
}

// TierCapabilities is the single source of truth for tier gating.
var TierCapabilities = map[Tier]Capabilities{
	TierFree: {
		DailyMessageLimit: 50,
	},
	TierPremium: {
		UnlimitedCrushes:  true,
		ImageMessages:     true,
		SeeInboundCrushes: true,
	},
}

// SubscriptionActive reports whether a subscription window covers now.
func SubscriptionActive(active bool, periodEnd *time.Time, now time.Time) bool {
	return active && periodEnd != nil && now.Before(*periodEnd)
}

// TierFor maps subscription state to a tier.
func TierFor(active bool, periodEnd *time.Time, now time.Time) Tier {
	if SubscriptionActive(active, periodEnd, now) {
		return TierPremium
	}
	return TierFree
}

func CapabilitiesOf(t Tier) Capabilities {
	if c, ok := TierCapabilities[t]; ok {
		return c
	}
	return TierCapabilities[TierFree]
}

// Can checks a boolean capability for a tier.
func Can(t Tier, c Capability) bool {
	caps := CapabilitiesOf(t)
	switch c {
	case CapUnlimitedCrushes:
		return caps.UnlimitedCrushes
	case CapImageMessages:
		return caps.ImageMessages
	case CapSeeInboundCrushes:
		return caps.SeeInboundCrushes
	}
	return false
}
