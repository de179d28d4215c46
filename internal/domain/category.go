package domain

import "strings"

// Category is the fixed set of support areas a ticket or FAQ belongs to.
type Category string

const (
	CategoryAppDirectory     Category = "App Directory"
	CategoryAppNameChange    Category = "App Name Change"
	CategoryAPIGateway       Category = "API & Gateway"
	CategoryCommunityPerks   Category = "Developer Community Perks"
	CategoryPremiumApps      Category = "Premium Apps"
	CategorySocialSDK        Category = "Social SDK"
	CategoryTeamsOwnership   Category = "Teams & Ownership"
	CategoryVerificationInts Category = "Verification & Intents"
	CategoryWebhooks         Category = "Webhooks"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAppDirectory,
	CategoryAppNameChange,
	CategoryAPIGateway,
	CategoryCommunityPerks,
	CategoryPremiumApps,
	CategorySocialSDK,
	CategoryTeamsOwnership,
	CategoryVerificationInts,
	CategoryWebhooks,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches a category case-insensitively.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	for _, known := range Categories {
		if strings.EqualFold(string(known), raw) {
			return known, true
		}
	}
	return "", false
}
