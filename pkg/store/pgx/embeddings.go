package pgx

import (
	"context"
	"fmt"
	"sort"

	"github.com/pgvector/pgvector-go"

	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
)

const embeddingChunk = 500

func (s *DBStorage) CachedEmbeddings(ctx context.Context, model string, words []string) (map[string][]float32, error) {
	words = store.DedupeStrings(words)
	if len(words) == 0 {
		return map[string][]float32{}, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT word, embedding
		FROM word_embeddings
		WHERE model = $1 AND word = ANY($2)
	`, model, words)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding cache: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32, len(words))
	for rows.Next() {
		var word string
		var vec pgvector.Vector
		if err := rows.Scan(&word, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan cached embedding: %w", err)
		}
		out[word] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query embedding cache: %w", err)
	}

	logger.Debug("[Store] Embedding cache lookup", "model", model, "requested", len(words), "hits", len(out))
	return out, nil
}

func (s *DBStorage) StoreEmbeddings(ctx context.Context, model string, embeddings map[string][]float32) error {
	if len(embeddings) == 0 {
		return nil
	}

	words := make([]string, 0, len(embeddings))
	for word := range embeddings {
		words = append(words, word)
	}
	sort.Strings(words)

	return store.ChunkRange(len(words), embeddingChunk, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin embedding upsert: %w", err)
		}
		defer tx.Rollback(ctx)

		for _, word := range words[start:end] {
			_, err := tx.Exec(ctx, `
				INSERT INTO word_embeddings (model, word, embedding)
				VALUES ($1, $2, $3)
				ON CONFLICT (model, word) DO UPDATE
				SET embedding = EXCLUDED.embedding, updated_at = NOW()
			`, model, word, pgvector.NewVector(embeddings[word]))
			if err != nil {
				return fmt.Errorf("failed to upsert embedding for %q: %w", word, err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit embedding upsert: %w", err)
		}
		return nil
	})
}
