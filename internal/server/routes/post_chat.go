package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"
	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/insights"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// ChatAnalysisHandler answers a question about a stored analysis using the
// configured chat model, replaying the client-held history
func ChatAnalysisHandler(c echo.Context) error {
	type chatRequest struct {
		AnalysisID string           `json:"analysis_id" validate:"required"`
		Message    string           `json:"message" validate:"required"`
		History    []ai.ChatMessage `json:"history"`
	}

	type chatResponse struct {
		Success    bool             `json:"success"`
		Response   string           `json:"response"`
		History    []ai.ChatMessage `json:"history"`
		TokensUsed int              `json:"tokens_used"`
		Remaining  *int             `json:"remaining"`
	}

	data := new(chatRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	cc := appContext(c)
	if !cc.App.Insights.Available() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Chat is not available"})
	}

	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)

	ctx := c.Request().Context()
	record, err := cc.App.Store.GetAnalysis(ctx, data.AnalysisID, cc.User.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Analysis not found"})
	}
	if err != nil {
		logger.Error("Failed to load analysis", "analysis_id", data.AnalysisID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if record.Status != store.StatusCompleted {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Analysis is not completed yet"})
	}

	var result analysis.Result
	if err := json.Unmarshal(record.Result, &result); err != nil {
		logger.Error("Failed to decode stored result", "analysis_id", data.AnalysisID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	analysisContext := insights.PrepareContext(&result, insights.DefaultMaxContextWords)
	chat, err := cc.App.Insights.Chat(ctx, data.Message, analysisContext, data.History)
	if err != nil {
		logger.Error("Chat failed", "analysis_id", data.AnalysisID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Chat request failed"})
	}

	used, err := cc.App.Store.IncrementChatMessages(ctx, cc.User.UserID, 1)
	if err != nil {
		logger.Error("Failed to increment chat counter", "user", cc.User.UserID, "err", err)
		used = profile.ChatMessagesMonth + 1
	}
	var remaining *int
	if limits.ChatMessagesPerMonth != nil {
		left := max(*limits.ChatMessagesPerMonth-used, 0)
		remaining = &left
	}

	logUsage(c, "chat", map[string]any{
		"analysis_id": data.AnalysisID,
		"tokens_used": chat.TokensUsed,
	})

	return c.JSON(http.StatusOK, chatResponse{
		Success:    true,
		Response:   chat.Response,
		History:    chat.History,
		TokensUsed: chat.TokensUsed,
		Remaining:  remaining,
	})
}
