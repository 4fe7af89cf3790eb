package pgx

import (
	"context"
	"fmt"

	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

// Counter reads apply the period reset inline so a profile untouched since
// yesterday (or last month) reports zero without a write.
const selectProfileSQL = `
SELECT user_id, email, tier,
       CASE WHEN analyses_reset_on = CURRENT_DATE THEN analyses_today ELSE 0 END,
       CASE WHEN chat_reset_on = DATE_TRUNC('month', CURRENT_DATE)::DATE THEN chat_messages_month ELSE 0 END,
       created_at, updated_at
FROM profiles
WHERE user_id = $1
`

func (s *DBStorage) EnsureProfile(ctx context.Context, userID, email string) (*store.Profile, error) {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO profiles (user_id, email)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE profiles.email END
	`, userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	var p store.Profile
	var tierName string
	err = s.conn.QueryRow(ctx, selectProfileSQL, userID).Scan(
		&p.UserID,
		&p.Email,
		&tierName,
		&p.AnalysesToday,
		&p.ChatMessagesMonth,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	p.Tier = tier.Parse(tierName)
	return &p, nil
}

func (s *DBStorage) SetTier(ctx context.Context, userID string, t tier.Tier) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE profiles SET tier = $2, updated_at = NOW() WHERE user_id = $1
	`, userID, string(t))
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DBStorage) IncrementAnalysisCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.conn.QueryRow(ctx, `
		UPDATE profiles
		SET analyses_today = CASE WHEN analyses_reset_on = CURRENT_DATE THEN analyses_today + 1 ELSE 1 END,
		    analyses_reset_on = CURRENT_DATE,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING analyses_today
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment analysis count: %w", err)
	}
	return count, nil
}

func (s *DBStorage) IncrementChatMessages(ctx context.Context, userID string, n int) (int, error) {
	var count int
	err := s.conn.QueryRow(ctx, `
		UPDATE profiles
		SET chat_messages_month = CASE
		        WHEN chat_reset_on = DATE_TRUNC('month', CURRENT_DATE)::DATE THEN chat_messages_month + $2
		        ELSE $2
		    END,
		    chat_reset_on = DATE_TRUNC('month', CURRENT_DATE)::DATE,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING chat_messages_month
	`, userID, n).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment chat messages: %w", err)
	}
	return count, nil
}

func (s *DBStorage) LogUsage(ctx context.Context, userID, action string, metadata []byte) error {
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO usage_logs (user_id, action, metadata) VALUES ($1, $2, $3)
	`, userID, action, metadata)
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}
