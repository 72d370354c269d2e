package rules

import "github.com/bandhanapp/backend/internal/domain/enums"

// Entitlement is the resolved capability set of one tier for the WhatsApp
// channel. DailyQuota of -1 means unlimited.
type Entitlement struct {
	Tier                  enums.Tier
	CanSend               bool
	DailyQuota            int
	RequiresAdminApproval bool
}

// EntitlementForTier maps a subscription tier onto the fixed channel policy.
// The free tier cannot use the channel at all; its RequiresAdminApproval flag
// is kept for parity with the in-app contact policy even though it is
// unreachable here.
func EntitlementForTier(tier enums.Tier) Entitlement {
	switch tier {
	case enums.TierPremium:
		return Entitlement{
			Tier:       enums.TierPremium,
			CanSend:    true,
			DailyQuota: 50,
		}
	case enums.TierElite:
		return Entitlement{
			Tier:       enums.TierElite,
			CanSend:    true,
			DailyQuota: -1,
		}
	default:
		return Entitlement{
			Tier:                  enums.TierFree,
			CanSend:               false,
			DailyQuota:            5,
			RequiresAdminApproval: true,
		}
	}
}
