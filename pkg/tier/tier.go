// Package tier defines subscription tier limits and feature gates.
package tier

// Tier identifies a subscription plan.
type Tier string

const (
	Free       Tier = "free"
	Pro        Tier = "pro"
	Enterprise Tier = "enterprise"
)

// Limits describes what a tier allows. Nil pointer fields mean unlimited.
type Limits struct {
	MaxGroups            int  `json:"max_groups"`
	MaxAnalysesPerDay    *int `json:"max_analyses_per_day"`
	MaxWords             *int `json:"max_words"`
	MaxFileSizeMB        int  `json:"max_file_size_mb"`
	SemanticEnabled      bool `json:"semantic_enabled"`
	ChatEnabled          bool `json:"chat_enabled"`
	ChatMessagesPerMonth *int `json:"chat_messages_per_month"`
	ExportEnabled        bool `json:"export_enabled"`
	SaveAnalysesDays     int  `json:"save_analyses_days"`
	APIAccess            bool `json:"api_access"`
}

// Pricing is display metadata for a tier.
type Pricing struct {
	Name         string `json:"name"`
	Price        int    `json:"price"`
	PriceDisplay string `json:"price_display"`
	Description  string `json:"description"`
}

var limits = map[Tier]Limits{
	Free: {
		MaxGroups:            1,
		MaxAnalysesPerDay:    intPtr(3),
		MaxWords:             intPtr(100),
		MaxFileSizeMB:        5,
		ChatMessagesPerMonth: intPtr(0),
	},
	Pro: {
		MaxGroups:            2,
		MaxWords:             intPtr(500),
		MaxFileSizeMB:        25,
		SemanticEnabled:      true,
		ChatEnabled:          true,
		ChatMessagesPerMonth: intPtr(10),
		ExportEnabled:        true,
		SaveAnalysesDays:     7,
	},
	Enterprise: {
		MaxGroups:        5,
		MaxFileSizeMB:    50,
		SemanticEnabled:  true,
		ChatEnabled:      true,
		ExportEnabled:    true,
		SaveAnalysesDays: 90,
		APIAccess:        true,
	},
}

var pricing = map[Tier]Pricing{
	Free: {
		Name:         "Free",
		Price:        0,
		PriceDisplay: "Free",
		Description:  "Get started with basic analysis",
	},
	Pro: {
		Name:         "Pro",
		Price:        9,
		PriceDisplay: "$9/month",
		Description:  "For researchers and professionals",
	},
	Enterprise: {
		Name:         "Enterprise",
		Price:        49,
		PriceDisplay: "$49/month",
		Description:  "For teams and organizations",
	},
}

// Parse maps a stored tier string onto a known tier, falling back to Free.
func Parse(s string) Tier {
	switch Tier(s) {
	case Pro:
		return Pro
	case Enterprise:
		return Enterprise
	default:
		return Free
	}
}

// LimitsFor returns the limits of a tier; unknown tiers get Free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := limits[t]; ok {
		return l
	}
	return limits[Free]
}

// PricingFor returns the display pricing of a tier; unknown tiers get
// Free pricing.
func PricingFor(t Tier) Pricing {
	if p, ok := pricing[t]; ok {
		return p
	}
	return pricing[Free]
}

// Within reports whether current is inside limit. A nil limit means
// unlimited; otherwise another unit must still fit below the limit.
func Within(current int, limit *int) bool {
	if limit == nil {
		return true
	}
	return current < *limit
}

// MaxUploadBytes converts the file size limit to bytes.
func (l Limits) MaxUploadBytes() int64 {
	return int64(l.MaxFileSizeMB) << 20
}

func intPtr(n int) *int { return &n }
