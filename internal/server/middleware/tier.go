package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// ErrNoUser is returned by Profile when the request carries no
// authenticated user.
var ErrNoUser = errors.New("no authenticated user")

// Profile resolves the caller's profile, creating a free-tier one on first
// contact. The profile is cached on the request context so the gates and
// the handler share one lookup.
func Profile(c echo.Context) (*store.Profile, error) {
	cc := c.(*AppContext)
	if cc.profile != nil {
		return cc.profile, nil
	}
	if cc.User == nil {
		return nil, ErrNoUser
	}
	profile, err := cc.App.Store.EnsureProfile(c.Request().Context(), cc.User.UserID, cc.User.Email)
	if err != nil {
		return nil, err
	}
	cc.profile = profile
	return profile, nil
}

func profileOrFail(c echo.Context) (*store.Profile, error) {
	profile, err := Profile(c)
	if errors.Is(err, ErrNoUser) {
		return nil, c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if err != nil {
		logger.Error("Failed to load user profile", "err", err)
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return profile, nil
}

// RequireAnalysisQuota blocks the request when the caller has used up
// today's analyses.
func RequireAnalysisQuota(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		profile, err := profileOrFail(c)
		if profile == nil {
			return err
		}
		limits := tier.LimitsFor(profile.Tier)
		if !tier.Within(profile.AnalysesToday, limits.MaxAnalysesPerDay) {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error": fmt.Sprintf(
					"Daily analysis limit reached (%d analyses). Upgrade to Pro for unlimited analyses.",
					*limits.MaxAnalysesPerDay),
				"tier":  profile.Tier,
				"limit": *limits.MaxAnalysesPerDay,
				"used":  profile.AnalysesToday,
			})
		}
		return next(c)
	}
}

// RequireGroups blocks the request when the caller's plan allows fewer
// than n comparison groups.
func RequireGroups(n int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profile, err := profileOrFail(c)
			if profile == nil {
				return err
			}
			limits := tier.LimitsFor(profile.Tier)
			if n > limits.MaxGroups {
				return c.JSON(http.StatusForbidden, GroupLimitResponse(profile.Tier, limits.MaxGroups))
			}
			return next(c)
		}
	}
}

// GroupLimitResponse is the payload returned when a request asks for more
// groups than the plan allows. Handlers that only learn the group count
// after parsing the body return it directly.
func GroupLimitResponse(t tier.Tier, maxGroups int) map[string]any {
	return map[string]any{
		"error": fmt.Sprintf(
			"Your plan allows up to %d group(s). Upgrade to analyze more groups.", maxGroups),
		"tier":       t,
		"max_groups": maxGroups,
	}
}

// RequireSemantic blocks the request when it asks for semantic augmentation
// on a plan without it. Requests that leave the form flag off pass through.
func RequireSemantic(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if v := c.FormValue("semantic"); v != "true" && v != "1" {
			return next(c)
		}
		profile, err := profileOrFail(c)
		if profile == nil {
			return err
		}
		if !tier.LimitsFor(profile.Tier).SemanticEnabled {
			return c.JSON(http.StatusForbidden, SemanticLimitResponse(profile.Tier))
		}
		return next(c)
	}
}

// SemanticLimitResponse is the payload returned when semantic augmentation
// is requested on a plan without it.
func SemanticLimitResponse(t tier.Tier) map[string]any {
	return map[string]any{
		"error": "Semantic analysis is a Pro feature. Upgrade to find semantically related words.",
		"tier":  t,
	}
}

// RequireExport blocks the request on plans without export.
func RequireExport(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		profile, err := profileOrFail(c)
		if profile == nil {
			return err
		}
		if !tier.LimitsFor(profile.Tier).ExportEnabled {
			return c.JSON(http.StatusForbidden, map[string]any{
				"error": "CSV export is a Pro feature. Upgrade to export your analysis data.",
				"tier":  profile.Tier,
			})
		}
		return next(c)
	}
}

// RequireChatQuota blocks the request on plans without chat or once the
// monthly message budget is spent.
func RequireChatQuota(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		profile, err := profileOrFail(c)
		if profile == nil {
			return err
		}
		limits := tier.LimitsFor(profile.Tier)
		if !limits.ChatEnabled {
			return c.JSON(http.StatusForbidden, map[string]any{
				"error": "Chat is a Pro feature. Upgrade to Pro to discuss your analysis with AI.",
				"tier":  profile.Tier,
			})
		}
		if !tier.Within(profile.ChatMessagesMonth, limits.ChatMessagesPerMonth) {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error": fmt.Sprintf(
					"Monthly chat limit reached (%d messages). Upgrade to Enterprise for unlimited chat.",
					*limits.ChatMessagesPerMonth),
				"tier":  profile.Tier,
				"limit": *limits.ChatMessagesPerMonth,
				"used":  profile.ChatMessagesMonth,
			})
		}
		return next(c)
	}
}
