package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// GetLimitsHandler returns the caller's tier, limits, and rolling usage
func GetLimitsHandler(c echo.Context) error {
	type usage struct {
		AnalysesToday     int `json:"analyses_today"`
		ChatMessagesMonth int `json:"chat_messages_month"`
	}
	type remaining struct {
		AnalysesToday     *int `json:"analyses_today"`
		ChatMessagesMonth *int `json:"chat_messages_month"`
	}
	type limitsResponse struct {
		Tier      tier.Tier    `json:"tier"`
		Limits    tier.Limits  `json:"limits"`
		Pricing   tier.Pricing `json:"pricing"`
		Usage     usage        `json:"usage"`
		Remaining remaining    `json:"remaining"`
	}

	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)

	left := remaining{}
	if limits.MaxAnalysesPerDay != nil {
		n := max(*limits.MaxAnalysesPerDay-profile.AnalysesToday, 0)
		left.AnalysesToday = &n
	}
	if limits.ChatMessagesPerMonth != nil {
		n := max(*limits.ChatMessagesPerMonth-profile.ChatMessagesMonth, 0)
		left.ChatMessagesMonth = &n
	}

	return c.JSON(http.StatusOK, limitsResponse{
		Tier:    profile.Tier,
		Limits:  limits,
		Pricing: tier.PricingFor(profile.Tier),
		Usage: usage{
			AnalysesToday:     profile.AnalysesToday,
			ChatMessagesMonth: profile.ChatMessagesMonth,
		},
		Remaining: left,
	})
}
